// Package locale supplies translated weekday/month names, fixed phrases and
// date/time formatting for schedule display. A Locale is injected wherever
// user-facing text is produced; nothing else in the codebase hardcodes
// display strings.
package locale

import (
	"fmt"
	"strings"
	"time"
)

// Locale holds the translated vocabulary and phrase templates for one
// language. Weekday and month slices are Monday-first / January-first.
type Locale struct {
	Code string

	Weekdays [7]string
	Months   [12]string
	Ordinals [6]string // first..fifth, last

	And string

	// Phrase templates. All use fmt verbs.
	EveryTpl          string // "Every %s"
	ThisTpl           string // "This %s"
	WeekdayRangeTpl   string // "From %s to %s"
	TimeRangeTpl      string // "from %s to %s"
	AtTpl             string // "at %s"
	StartsThroughTpl  string // "Starts %s through %s"
	EveryOrdinalTpl   string // "Every %s %s of the month"
	EveryNWeeksSuffix string // " every %d weeks"
	DatesToAnnounce   string // fallback copy for an empty schedule

	// Notifications holds the delivery copy per notification type.
	Notifications map[string]NotificationCopy
}

// NotificationCopy is the subject and body template for one notification
// type. BodyTpl takes the notification title.
type NotificationCopy struct {
	Subject string
	BodyTpl string
}

// French is the default locale of the center.
var French = &Locale{
	Code:     "fr",
	Weekdays: [7]string{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"},
	Months: [12]string{"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	Ordinals:          [6]string{"premier", "deuxième", "troisième", "quatrième", "cinquième", "dernier"},
	And:               "et",
	EveryTpl:          "Tous les %s",
	ThisTpl:           "Ce %s",
	WeekdayRangeTpl:   "Du %s au %s",
	TimeRangeTpl:      "de %s à %s",
	AtTpl:             "à %s",
	StartsThroughTpl:  "Du %s au %s",
	EveryOrdinalTpl:   "Chaque %s %s du mois",
	EveryNWeeksSuffix: " toutes les %d semaines",
	DatesToAnnounce:   "Dates à venir",
	Notifications: map[string]NotificationCopy{
		"registration_confirmed":  {"Inscription confirmée", "Votre inscription à « %s » est confirmée."},
		"registration_pending":    {"Inscription en attente", "Votre inscription à « %s » attend une validation."},
		"registration_waitlisted": {"Liste d'attente", "Vous êtes sur liste d'attente pour « %s »."},
		"waitlist_promoted":       {"Place disponible", "Une place s'est libérée : votre inscription à « %s » est confirmée."},
		"capacity_threshold":      {"Seuil de remplissage atteint", "L'activité « %s » approche de sa capacité maximale."},
		"badge_awarded":           {"Nouveau badge", "Vous avez obtenu le badge « %s »."},
	},
}

// English locale, used when the center runs in English.
var English = &Locale{
	Code:     "en",
	Weekdays: [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	Months: [12]string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	Ordinals:          [6]string{"first", "second", "third", "fourth", "fifth", "last"},
	And:               "and",
	EveryTpl:          "Every %s",
	ThisTpl:           "This %s",
	WeekdayRangeTpl:   "From %s to %s",
	TimeRangeTpl:      "from %s to %s",
	AtTpl:             "at %s",
	StartsThroughTpl:  "Starts %s through %s",
	EveryOrdinalTpl:   "Every %s %s of the month",
	EveryNWeeksSuffix: " every %d weeks",
	DatesToAnnounce:   "Dates to be announced",
	Notifications: map[string]NotificationCopy{
		"registration_confirmed":  {"Registration confirmed", `Your registration for "%s" is confirmed.`},
		"registration_pending":    {"Registration pending", `Your registration for "%s" awaits validation.`},
		"registration_waitlisted": {"Waitlisted", `You are on the waitlist for "%s".`},
		"waitlist_promoted":       {"Spot available", `A spot opened up: your registration for "%s" is confirmed.`},
		"capacity_threshold":      {"Capacity threshold reached", `The activity "%s" is nearing its capacity.`},
		"badge_awarded":           {"New badge", `You earned the badge "%s".`},
	},
}

// Load returns the locale for a language code, defaulting to French.
func Load(code string) *Locale {
	switch strings.ToLower(code) {
	case "en":
		return English
	default:
		return French
	}
}

// WeekdayName returns the translated name for a time.Weekday.
func (l *Locale) WeekdayName(wd time.Weekday) string {
	// time.Weekday is Sunday-first; the table is Monday-first.
	return l.Weekdays[(int(wd)+6)%7]
}

// FormatTime renders a time of day as "18h00" / "9h30".
func (l *Locale) FormatTime(t time.Time) string {
	return fmt.Sprintf("%dh%02d", t.Hour(), t.Minute())
}

// FormatDate renders a full date, e.g. "mercredi 6 mars".
func (l *Locale) FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s", l.WeekdayName(t.Weekday()), t.Day(), l.Months[int(t.Month())-1])
}

// FormatDateTime renders a date with its time, e.g. "mercredi 6 mars à 18h00".
func (l *Locale) FormatDateTime(t time.Time) string {
	return l.FormatDate(t) + " " + fmt.Sprintf(l.AtTpl, l.FormatTime(t))
}

// JoinNames joins names with commas and the locale's "and" before the last
// item: "mardi, jeudi et vendredi".
func (l *Locale) JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " " + l.And + " " + names[len(names)-1]
}

// OrdinalName returns the translated ordinal for 1..5, or "last" for -1.
func (l *Locale) OrdinalName(n int) string {
	if n == -1 {
		return l.Ordinals[5]
	}
	if n >= 1 && n <= 5 {
		return l.Ordinals[n-1]
	}
	return ""
}
