package schedule

import (
	"fmt"
	"time"

	"github.com/centre-jeunesse/backend/internal/locale"
)

// Summary is the display output derived from a schedule: a recurrence
// description and the label of the next occurrence. Both are empty when the
// schedule produced no occurrences; the caller decides on fallback copy.
type Summary struct {
	Text           string `json:"summary"`
	NextOccurrence string `json:"next_occurrence_label"`
}

// Summarize derives the human-readable schedule description from the model
// and its generated occurrences. now separates past from upcoming; the
// locale supplies every displayed string.
func Summarize(m Model, occs []Occurrence, loc *locale.Locale, now time.Time) Summary {
	if len(occs) == 0 {
		return Summary{}
	}

	upcoming := make([]Occurrence, 0, len(occs))
	for _, o := range occs {
		if !o.Start.Before(now) {
			upcoming = append(upcoming, o)
		}
	}
	// When everything is in the past, describe what did happen.
	basis := upcoming
	if len(basis) == 0 {
		basis = occs
	}

	var s Summary
	if len(upcoming) > 0 {
		s.NextOccurrence = loc.FormatDateTime(upcoming[0].Start)
	} else {
		s.NextOccurrence = loc.FormatDateTime(occs[0].Start)
	}

	timeSuffix := sharedTimeSuffix(basis, loc)

	switch m.Mode {
	case ModeRange:
		first := basis[0]
		if first.End != nil {
			s.Text = fmt.Sprintf(loc.StartsThroughTpl, loc.FormatDateTime(first.Start), loc.FormatDateTime(*first.End))
		} else {
			s.Text = loc.FormatDateTime(first.Start)
		}
		return s

	case ModeSeries:
		// Explicit series: list the literal dates, never a recurrence phrase.
		names := make([]string, 0, len(basis))
		for _, o := range basis {
			names = append(names, loc.FormatDate(o.Start))
		}
		s.Text = loc.JoinNames(names) + timeSuffix
		return s

	case ModeMonthly:
		if name := loc.OrdinalName(m.MonthOrdinal); name != "" && m.HasMonthWeekday {
			s.Text = fmt.Sprintf(loc.EveryOrdinalTpl, name, loc.WeekdayName(m.MonthWeekday)) + timeSuffix
			return s
		}
	}

	weekdays := distinctWeekdays(basis)

	switch {
	case len(weekdays) == 1 && len(basis) == 1:
		// A single remaining date reads as "This Wednesday 6 March ...".
		s.Text = fmt.Sprintf(loc.ThisTpl, loc.FormatDate(basis[0].Start)) + timeSuffix

	case isContiguousRun(weekdays) && len(weekdays) >= 3:
		// Camp/intensive pattern over a contiguous block of weekdays.
		s.Text = fmt.Sprintf(loc.WeekdayRangeTpl,
			loc.WeekdayName(weekdays[0]), loc.WeekdayName(weekdays[len(weekdays)-1])) + timeSuffix

	default:
		names := make([]string, 0, len(weekdays))
		for _, wd := range weekdays {
			names = append(names, loc.WeekdayName(wd))
		}
		s.Text = fmt.Sprintf(loc.EveryTpl, loc.JoinNames(names)) + timeSuffix
		if m.Mode == ModeWeekly && m.Interval > 1 {
			s.Text += fmt.Sprintf(loc.EveryNWeeksSuffix, m.Interval)
		}
	}
	return s
}

// sharedTimeSuffix returns " from 18h00 to 20h00" when every occurrence has
// the same start/end times, and "" when times are heterogeneous, so the
// summary never over-generalizes per-weekday overrides.
func sharedTimeSuffix(occs []Occurrence, loc *locale.Locale) string {
	type pair struct {
		start  string
		end    string
		hasEnd bool
	}
	var shared pair
	for i, o := range occs {
		p := pair{start: loc.FormatTime(o.Start)}
		if o.End != nil {
			p.end = loc.FormatTime(*o.End)
			p.hasEnd = true
		}
		if i == 0 {
			shared = p
			continue
		}
		if p != shared {
			return ""
		}
	}
	if shared.hasEnd {
		return " " + fmt.Sprintf(loc.TimeRangeTpl, shared.start, shared.end)
	}
	return " " + fmt.Sprintf(loc.AtTpl, shared.start)
}

// distinctWeekdays collects the calendar weekdays present in the
// occurrences, in natural Monday-first order regardless of input order.
func distinctWeekdays(occs []Occurrence) []time.Weekday {
	var seen [7]bool
	for _, o := range occs {
		seen[mondayIndex(o.Start.Weekday())] = true
	}
	var out []time.Weekday
	for i := 0; i < 7; i++ {
		if seen[i] {
			// Invert mondayIndex: 0 -> Monday ... 6 -> Sunday.
			out = append(out, time.Weekday((i+1)%7))
		}
	}
	return out
}

// isContiguousRun reports whether the weekdays form one unbroken block in
// Monday-first order (e.g. Monday..Friday).
func isContiguousRun(wds []time.Weekday) bool {
	if len(wds) < 2 {
		return false
	}
	for i := 1; i < len(wds); i++ {
		if mondayIndex(wds[i]) != mondayIndex(wds[i-1])+1 {
			return false
		}
	}
	return true
}
