// Package schedule is the event scheduling core: it decodes the schedule
// configuration saved by the admin form, expands it into concrete
// occurrences, derives human-readable summaries and selects display
// templates. All computation is pure; persistence and rendering live in
// collaborating packages.
package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Mode is the scheduling strategy of an event. Exactly one mode's parameter
// set is meaningful at a time; parameters of other modes are ignored.
type Mode string

const (
	ModeFixed    Mode = "fixed"
	ModeRange    Mode = "range"
	ModeWeekly   Mode = "recurring_weekly"
	ModeMonthly  Mode = "recurring_monthly"
	ModeSeries   Mode = "series"
	ModeFallback Mode = "fallback"
)

// TimeOfDay is a wall-clock time within a day. Valid is false when the
// source field was absent or unparseable.
type TimeOfDay struct {
	Hour   int
	Minute int
	Valid  bool
}

// TimeRange is a start/end pair of times of day; End may be invalid, which
// means "open-ended".
type TimeRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

// SeriesItem is one explicit dated entry of a series schedule.
type SeriesItem struct {
	Date  time.Time // date only, midnight in the model's timezone
	Times TimeRange
}

// Model is the normalized schedule configuration of an event, decoded from
// the JSON the admin form persists. It is an immutable snapshot: decoding
// never mutates the stored representation and unknown fields are preserved
// in Extra rather than rejected.
type Model struct {
	Mode     Mode
	Timezone string

	// fixed
	Date       time.Time // date only; zero when unset
	StartTime  TimeOfDay
	EndTime    TimeOfDay

	// range
	RangeStart time.Time
	RangeEnd   time.Time

	// recurring_weekly
	StartDate       time.Time
	Weekdays        []time.Weekday // calendar order, Monday first
	Interval        int            // every N weeks/months, min 1
	PerWeekdayTimes map[time.Weekday]TimeRange
	Until           time.Time // zero when unbounded

	// recurring_monthly
	MonthOrdinal int // 1..5, -1 for last, 0 when unset
	MonthWeekday time.Weekday
	HasMonthWeekday bool

	// series
	Series []SeriesItem

	// Extra holds fields the decoder does not recognize, kept verbatim so a
	// round-trip through the admin form never drops data.
	Extra map[string]json.RawMessage
}

// Location resolves the model's timezone, falling back to UTC when the
// identifier is absent or unknown.
func (m Model) Location() *time.Location {
	if m.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Hash is a stable digest of the decoded model, usable as a cache key
// together with the generation window.
func (m Model) Hash() string {
	raw, _ := json.Marshal(struct {
		Mode     Mode
		Timezone string
		Date     time.Time
		Start    TimeOfDay
		End      TimeOfDay
		RS, RE   time.Time
		SD       time.Time
		WD       []time.Weekday
		IV       int
		PWT      map[time.Weekday]TimeRange
		Until    time.Time
		MO       int
		MW       time.Weekday
		Series   []SeriesItem
	}{m.Mode, m.Timezone, m.Date, m.StartTime, m.EndTime, m.RangeStart, m.RangeEnd,
		m.StartDate, m.Weekdays, m.Interval, m.PerWeekdayTimes, m.Until,
		m.MonthOrdinal, m.MonthWeekday, m.Series})
	return fmt.Sprintf("%x", raw)
}

// wireModel mirrors the persisted JSON. Every field is decoded leniently:
// an unparseable value degrades to "unset" instead of failing the decode.
type wireModel struct {
	Mode            string                          `json:"mode"`
	Timezone        string                          `json:"timezone"`
	Date            string                          `json:"date"`
	StartTime       string                          `json:"start_time"`
	EndTime         string                          `json:"end_time"`
	RangeStart      string                          `json:"range_start"`
	RangeEnd        string                          `json:"range_end"`
	StartDate       string                          `json:"start_date"`
	Weekdays        []string                        `json:"weekdays"`
	Interval        int                             `json:"interval"`
	PerWeekdayTimes map[string]wireTimeRange        `json:"per_weekday_times"`
	Until           string                          `json:"until"`
	MonthOrdinal    string                          `json:"month_ordinal"`
	MonthWeekday    string                          `json:"month_weekday"`
	Series          []wireSeriesItem                `json:"series"`
}

type wireTimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type wireSeriesItem struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

var knownFields = map[string]bool{
	"mode": true, "timezone": true, "date": true, "start_time": true,
	"end_time": true, "range_start": true, "range_end": true,
	"start_date": true, "weekdays": true, "interval": true,
	"per_weekday_times": true, "until": true, "month_ordinal": true,
	"month_weekday": true, "series": true,
}

// Decode parses the persisted schedule JSON into a Model. It only errors
// when the input is not a JSON object at all; malformed individual fields
// decay to their zero values and later yield an empty occurrence list,
// which callers display as "dates to be announced".
func Decode(raw json.RawMessage) (Model, error) {
	var m Model
	if len(raw) == 0 {
		return m, nil
	}

	var w wireModel
	if err := json.Unmarshal(raw, &w); err != nil {
		return m, fmt.Errorf("decode schedule: %w", err)
	}

	m.Mode = parseMode(w.Mode)
	m.Timezone = w.Timezone
	loc := m.Location()

	m.Date = parseDate(w.Date, loc)
	m.StartTime = parseTimeOfDay(w.StartTime)
	m.EndTime = parseTimeOfDay(w.EndTime)
	m.RangeStart = parseDateTime(w.RangeStart, loc)
	m.RangeEnd = parseDateTime(w.RangeEnd, loc)
	m.StartDate = parseDate(w.StartDate, loc)
	m.Until = parseDate(w.Until, loc)

	m.Interval = w.Interval
	if m.Interval < 1 {
		m.Interval = 1
	}

	for _, tok := range w.Weekdays {
		if wd, ok := parseWeekday(tok); ok {
			m.Weekdays = append(m.Weekdays, wd)
		}
	}
	sortWeekdays(m.Weekdays)

	if len(w.PerWeekdayTimes) > 0 {
		m.PerWeekdayTimes = make(map[time.Weekday]TimeRange, len(w.PerWeekdayTimes))
		for tok, tr := range w.PerWeekdayTimes {
			if wd, ok := parseWeekday(tok); ok {
				m.PerWeekdayTimes[wd] = TimeRange{
					Start: parseTimeOfDay(tr.Start),
					End:   parseTimeOfDay(tr.End),
				}
			}
		}
	}

	m.MonthOrdinal = parseOrdinal(w.MonthOrdinal)
	if wd, ok := parseWeekday(w.MonthWeekday); ok {
		m.MonthWeekday = wd
		m.HasMonthWeekday = true
	}

	for _, item := range w.Series {
		date := parseDate(item.Date, loc)
		start := parseTimeOfDay(item.StartTime)
		if date.IsZero() || !start.Valid {
			continue
		}
		m.Series = append(m.Series, SeriesItem{
			Date:  date,
			Times: TimeRange{Start: start, End: parseTimeOfDay(item.EndTime)},
		})
	}
	sort.Slice(m.Series, func(i, j int) bool {
		if m.Series[i].Date.Equal(m.Series[j].Date) {
			return lessTimeOfDay(m.Series[i].Times.Start, m.Series[j].Times.Start)
		}
		return m.Series[i].Date.Before(m.Series[j].Date)
	})

	// Keep fields we do not recognize so nothing is silently dropped.
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err == nil {
		for k, v := range all {
			if !knownFields[k] {
				if m.Extra == nil {
					m.Extra = make(map[string]json.RawMessage)
				}
				m.Extra[k] = v
			}
		}
	}

	return m, nil
}

func parseMode(s string) Mode {
	switch Mode(strings.TrimSpace(s)) {
	case ModeFixed, ModeRange, ModeWeekly, ModeMonthly, ModeSeries:
		return Mode(strings.TrimSpace(s))
	default:
		return ModeFallback
	}
}

var weekdayTokens = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

func parseWeekday(tok string) (time.Weekday, bool) {
	wd, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(tok))]
	return wd, ok
}

func parseOrdinal(tok string) int {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "first":
		return 1
	case "second":
		return 2
	case "third":
		return 3
	case "fourth":
		return 4
	case "fifth":
		return 5
	case "last":
		return -1
	default:
		return 0
	}
}

// parseDate accepts "2006-01-02" and returns midnight in loc.
func parseDate(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseDateTime accepts RFC 3339 or "2006-01-02 15:04" / "2006-01-02T15:04".
func parseDateTime(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc)
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseTimeOfDay accepts "15:04", "15h04" and "15h".
func parseTimeOfDay(s string) TimeOfDay {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return TimeOfDay{}
	}
	s = strings.ReplaceAll(s, "h", ":")
	s = strings.TrimSuffix(s, ":")
	parts := strings.SplitN(s, ":", 2)
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil || h < 0 || h > 23 {
		return TimeOfDay{}
	}
	if len(parts) == 2 && parts[1] != "" {
		if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil || m < 0 || m > 59 {
			return TimeOfDay{}
		}
	}
	return TimeOfDay{Hour: h, Minute: m, Valid: true}
}

func lessTimeOfDay(a, b TimeOfDay) bool {
	if a.Hour != b.Hour {
		return a.Hour < b.Hour
	}
	return a.Minute < b.Minute
}

// sortWeekdays orders weekdays Monday-first, the calendar order used for
// both generation and display.
func sortWeekdays(wds []time.Weekday) {
	sort.Slice(wds, func(i, j int) bool {
		return mondayIndex(wds[i]) < mondayIndex(wds[j])
	})
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
