package schedule

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

// maxGenerated is the safety ceiling on a single expansion, so an unbounded
// recurrence without an until date can never run away.
const maxGenerated = 500

// Occurrence is one concrete date-time instance of an event. Timestamp is
// the epoch seconds of Start and serves as the stable public identifier the
// registration UI submits back; it must not vary between generation calls
// for an unchanged model.
type Occurrence struct {
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	Timestamp int64      `json:"timestamp"`
	IsPast    bool       `json:"is_past"`
	Label     string     `json:"label,omitempty"`
}

// Window bounds a generation request. Zero From/Until mean unbounded on
// that side; MaxCount <= 0 or above the ceiling falls back to the ceiling.
type Window struct {
	From     time.Time
	Until    time.Time
	MaxCount int
}

// Upcoming is the window for member-facing previews: the next n occurrences
// from now on.
func Upcoming(now time.Time, n int) Window {
	return Window{From: now, MaxCount: n}
}

// Generate expands a schedule model into the ordered, deduplicated sequence
// of occurrences intersecting the window. It is a pure function of
// (model, window, now): now only marks occurrences as past, it never shifts
// them. A malformed model yields an empty sequence, never an error.
func Generate(m Model, w Window, now time.Time) []Occurrence {
	max := w.MaxCount
	if max <= 0 || max > maxGenerated {
		max = maxGenerated
	}

	var occs []Occurrence
	switch m.Mode {
	case ModeFixed:
		occs = generateFixed(m)
	case ModeRange:
		occs = generateRange(m)
	case ModeWeekly:
		occs = generateWeekly(m, w, max)
	case ModeMonthly:
		occs = generateMonthly(m, w, max)
	case ModeSeries:
		occs = generateSeries(m)
	default:
		return nil
	}

	occs = clampToWindow(occs, w)
	sort.Slice(occs, func(i, j int) bool { return occs[i].Start.Before(occs[j].Start) })
	occs = dedupByTimestamp(occs)
	if len(occs) > max {
		occs = occs[:max]
	}
	for i := range occs {
		occs[i].IsPast = occs[i].Start.Before(now)
	}
	return occs
}

func generateFixed(m Model) []Occurrence {
	if m.Date.IsZero() || !m.StartTime.Valid {
		return nil
	}
	return []Occurrence{makeOccurrence(m.Date, TimeRange{Start: m.StartTime, End: m.EndTime})}
}

func generateRange(m Model) []Occurrence {
	if m.RangeStart.IsZero() || m.RangeEnd.IsZero() || m.RangeEnd.Before(m.RangeStart) {
		return nil
	}
	// One long occurrence spanning the whole range, not expanded per day.
	end := m.RangeEnd
	return []Occurrence{{Start: m.RangeStart, End: &end, Timestamp: m.RangeStart.Unix()}}
}

func generateWeekly(m Model, w Window, max int) []Occurrence {
	if m.StartDate.IsZero() || len(m.Weekdays) == 0 {
		return nil
	}

	byweekday := make([]rrule.Weekday, 0, len(m.Weekdays))
	for _, wd := range m.Weekdays {
		byweekday = append(byweekday, rruleWeekday(wd))
	}

	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  m.Interval,
		Wkst:      rrule.MO,
		Byweekday: byweekday,
		Dtstart:   m.StartDate,
	}
	if !m.Until.IsZero() {
		opt.Until = endOfDay(m.Until)
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}

	var occs []Occurrence
	next := rule.Iterator()
	for len(occs) < max {
		day, ok := next()
		if !ok {
			break
		}
		if !w.Until.IsZero() && day.After(endOfDay(w.Until)) {
			break
		}
		if !w.From.IsZero() && endOfDay(day).Before(w.From) {
			continue
		}
		times, ok := m.weekdayTimes(day.Weekday())
		if !ok {
			continue
		}
		occs = append(occs, makeOccurrence(day, times))
	}
	return occs
}

// weekdayTimes resolves the time range for a weekday: the per-weekday
// override when present, otherwise the model's global start/end.
func (m Model) weekdayTimes(wd time.Weekday) (TimeRange, bool) {
	if tr, ok := m.PerWeekdayTimes[wd]; ok && tr.Start.Valid {
		return tr, true
	}
	if m.StartTime.Valid {
		return TimeRange{Start: m.StartTime, End: m.EndTime}, true
	}
	return TimeRange{}, false
}

func generateMonthly(m Model, w Window, max int) []Occurrence {
	if m.StartDate.IsZero() || !m.HasMonthWeekday || m.MonthOrdinal == 0 || !m.StartTime.Valid {
		return nil
	}

	wd := rruleWeekday(m.MonthWeekday)
	opt := rrule.ROption{
		Freq:      rrule.MONTHLY,
		Interval:  m.Interval,
		Byweekday: []rrule.Weekday{wd.Nth(m.MonthOrdinal)},
		Dtstart:   m.StartDate,
	}
	if !m.Until.IsZero() {
		opt.Until = endOfDay(m.Until)
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}

	// A month lacking the requested ordinal (no fifth Monday) simply yields
	// no instance for that month; the rule skips it rather than erroring.
	var occs []Occurrence
	next := rule.Iterator()
	for len(occs) < max {
		day, ok := next()
		if !ok {
			break
		}
		if !w.Until.IsZero() && day.After(endOfDay(w.Until)) {
			break
		}
		if !w.From.IsZero() && endOfDay(day).Before(w.From) {
			continue
		}
		occs = append(occs, makeOccurrence(day, TimeRange{Start: m.StartTime, End: m.EndTime}))
	}
	return occs
}

func generateSeries(m Model) []Occurrence {
	occs := make([]Occurrence, 0, len(m.Series))
	for _, item := range m.Series {
		occs = append(occs, makeOccurrence(item.Date, item.Times))
	}
	return occs
}

// makeOccurrence combines a date (midnight in the model timezone) with a
// time range into a concrete occurrence.
func makeOccurrence(day time.Time, times TimeRange) Occurrence {
	start := time.Date(day.Year(), day.Month(), day.Day(),
		times.Start.Hour, times.Start.Minute, 0, 0, day.Location())
	occ := Occurrence{Start: start, Timestamp: start.Unix()}
	if times.End.Valid {
		end := time.Date(day.Year(), day.Month(), day.Day(),
			times.End.Hour, times.End.Minute, 0, 0, day.Location())
		occ.End = &end
	}
	return occ
}

func clampToWindow(occs []Occurrence, w Window) []Occurrence {
	if w.From.IsZero() && w.Until.IsZero() {
		return occs
	}
	out := occs[:0]
	for _, o := range occs {
		// A spanning occurrence (range mode) stays in as long as it overlaps
		// the window, so an in-progress event is still listed.
		end := o.Start
		if o.End != nil {
			end = *o.End
		}
		if !w.From.IsZero() && end.Before(w.From) {
			continue
		}
		if !w.Until.IsZero() && o.Start.After(w.Until) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func dedupByTimestamp(occs []Occurrence) []Occurrence {
	if len(occs) < 2 {
		return occs
	}
	out := occs[:1]
	for _, o := range occs[1:] {
		if o.Timestamp != out[len(out)-1].Timestamp {
			out = append(out, o)
		}
	}
	return out
}

func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	return rruleWeekdays[wd]
}
