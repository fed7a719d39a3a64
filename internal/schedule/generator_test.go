package schedule

import (
	"encoding/json"
	"testing"
	"time"
)

func mustDecode(t *testing.T, raw string) Model {
	t.Helper()
	m, err := Decode(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	return m
}

func TestGenerate_WeeklyTuesdayThursday(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_weekly",
		"timezone": "UTC",
		"start_date": "2024-01-01",
		"weekdays": ["thursday", "tuesday"],
		"interval": 1,
		"start_time": "18:00",
		"end_time": "20:00"
	}`)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window := Window{From: now, Until: now.AddDate(0, 0, 27)}
	occs := Generate(m, window, now)

	if len(occs) != 8 {
		t.Fatalf("expected 8 occurrences over 4 weeks, got %d", len(occs))
	}
	wantDays := []int{2, 4, 9, 11, 16, 18, 23, 25}
	for i, o := range occs {
		if o.Start.Day() != wantDays[i] {
			t.Errorf("occurrence %d: want day %d, got %v", i, wantDays[i], o.Start)
		}
		if o.Start.Hour() != 18 || o.End == nil || o.End.Hour() != 20 {
			t.Errorf("occurrence %d: unexpected times %v - %v", i, o.Start, o.End)
		}
		wd := o.Start.Weekday()
		if wd != time.Tuesday && wd != time.Thursday {
			t.Errorf("occurrence %d: unexpected weekday %v", i, wd)
		}
	}
	// Each occurrence repeats exactly 7 days after the same weekday the
	// week before.
	for i := 2; i < len(occs); i++ {
		if got := occs[i].Start.Sub(occs[i-2].Start); got != 7*24*time.Hour {
			t.Errorf("occurrence %d: want 7d spacing from same weekday, got %v", i, got)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_weekly",
		"timezone": "Europe/Paris",
		"start_date": "2024-01-03",
		"weekdays": ["wednesday", "saturday"],
		"start_time": "14:30"
	}`)

	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	w := Window{From: now, MaxCount: 10}

	first := Generate(m, w, now)
	second := Generate(m, w, now)

	if len(first) != len(second) || len(first) != 10 {
		t.Fatalf("expected two identical sequences of 10, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Timestamp != second[i].Timestamp {
			t.Fatalf("sequence diverged at %d: %d vs %d", i, first[i].Timestamp, second[i].Timestamp)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Timestamp <= first[i-1].Timestamp {
			t.Fatalf("not strictly increasing at %d: %d then %d", i, first[i-1].Timestamp, first[i].Timestamp)
		}
	}
}

func TestGenerate_MonthlySecondTuesday(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_monthly",
		"timezone": "UTC",
		"start_date": "2024-01-01",
		"month_ordinal": "second",
		"month_weekday": "tuesday",
		"start_time": "10:00",
		"end_time": "12:00"
	}`)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now, MaxCount: 3}, now)

	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}
	want := []time.Time{
		time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 13, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC),
	}
	for i, o := range occs {
		if !o.Start.Equal(want[i]) {
			t.Errorf("occurrence %d: want %v, got %v", i, want[i], o.Start)
		}
	}
}

func TestGenerate_MonthlyFifthMondaySkipsShortMonths(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_monthly",
		"timezone": "UTC",
		"start_date": "2024-01-01",
		"month_ordinal": "fifth",
		"month_weekday": "monday",
		"start_time": "17:00"
	}`)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now, MaxCount: 2}, now)

	// January and April 2024 have five Mondays; February and March do not
	// and must contribute nothing rather than erroring.
	want := []time.Time{
		time.Date(2024, 1, 29, 17, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 29, 17, 0, 0, 0, time.UTC),
	}
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occs))
	}
	for i, o := range occs {
		if !o.Start.Equal(want[i]) {
			t.Errorf("occurrence %d: want %v, got %v", i, want[i], o.Start)
		}
	}
}

func TestGenerate_MonthlyLastFriday(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_monthly",
		"timezone": "UTC",
		"start_date": "2024-01-01",
		"month_ordinal": "last",
		"month_weekday": "friday",
		"start_time": "19:00"
	}`)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now, MaxCount: 2}, now)

	want := []time.Time{
		time.Date(2024, 1, 26, 19, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 23, 19, 0, 0, 0, time.UTC),
	}
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occs))
	}
	for i, o := range occs {
		if !o.Start.Equal(want[i]) {
			t.Errorf("occurrence %d: want %v, got %v", i, want[i], o.Start)
		}
	}
}

func TestGenerate_WeeklyPerWeekdayTimes(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_weekly",
		"timezone": "UTC",
		"start_date": "2024-03-04",
		"weekdays": ["monday", "wednesday"],
		"start_time": "18:00",
		"end_time": "20:00",
		"per_weekday_times": {
			"wednesday": {"start": "14:00", "end": "16:30"}
		}
	}`)

	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now, MaxCount: 4}, now)

	if len(occs) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occs))
	}
	for _, o := range occs {
		switch o.Start.Weekday() {
		case time.Monday:
			if o.Start.Hour() != 18 {
				t.Errorf("monday occurrence at %v, want 18h", o.Start)
			}
		case time.Wednesday:
			if o.Start.Hour() != 14 || o.End.Minute() != 30 {
				t.Errorf("wednesday override not applied: %v - %v", o.Start, o.End)
			}
		default:
			t.Errorf("unexpected weekday %v", o.Start.Weekday())
		}
	}
}

func TestGenerate_WeeklyInterval(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_weekly",
		"timezone": "UTC",
		"start_date": "2024-01-01",
		"weekdays": ["monday"],
		"interval": 2,
		"start_time": "09:00",
		"until": "2024-02-29"
	}`)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now}, now)

	// Every other Monday, bounded by until: Jan 1, 15, 29, Feb 12, 26.
	if len(occs) != 5 {
		t.Fatalf("expected 5 occurrences, got %d", len(occs))
	}
	for i := 1; i < len(occs); i++ {
		if got := occs[i].Start.Sub(occs[i-1].Start); got != 14*24*time.Hour {
			t.Errorf("occurrence %d: want 14d spacing, got %v", i, got)
		}
	}
}

func TestGenerate_FixedAndRange(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	fixed := mustDecode(t, `{
		"mode": "fixed", "timezone": "UTC",
		"date": "2024-06-03", "start_time": "9:00", "end_time": "17:00"
	}`)
	occs := Generate(fixed, Window{From: now}, now)
	if len(occs) != 1 {
		t.Fatalf("fixed: expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].Start.Day() != 3 || occs[0].Start.Hour() != 9 {
		t.Errorf("fixed: unexpected start %v", occs[0].Start)
	}

	rng := mustDecode(t, `{
		"mode": "range", "timezone": "UTC",
		"range_start": "2024-07-08T09:00:00", "range_end": "2024-07-12T17:00:00"
	}`)
	occs = Generate(rng, Window{From: now}, now)
	if len(occs) != 1 {
		t.Fatalf("range: expected a single spanning occurrence, got %d", len(occs))
	}
	if occs[0].End == nil || occs[0].End.Sub(occs[0].Start) != 4*24*time.Hour+8*time.Hour {
		t.Errorf("range: unexpected span %v - %v", occs[0].Start, occs[0].End)
	}
}

func TestGenerate_Series(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "series", "timezone": "UTC",
		"series": [
			{"date": "2024-04-20", "start_time": "10:00", "end_time": "12:00"},
			{"date": "2024-04-06", "start_time": "10:00", "end_time": "12:00"},
			{"date": "2024-04-13", "start_time": "10:00", "end_time": "12:00"}
		]
	}`)

	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now}, now)

	if len(occs) != 3 {
		t.Fatalf("expected exactly the 3 listed items, got %d", len(occs))
	}
	wantDays := []int{6, 13, 20}
	for i, o := range occs {
		if o.Start.Day() != wantDays[i] {
			t.Errorf("series not ordered: index %d is day %d", i, o.Start.Day())
		}
	}
}

func TestGenerate_MalformedYieldsEmpty(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		raw  string
	}{
		{"weekly without weekdays", `{"mode":"recurring_weekly","start_date":"2024-01-01","start_time":"18:00"}`},
		{"weekly without start date", `{"mode":"recurring_weekly","weekdays":["monday"],"start_time":"18:00"}`},
		{"fixed without date", `{"mode":"fixed","start_time":"18:00"}`},
		{"range inverted", `{"mode":"range","range_start":"2024-02-01T10:00:00","range_end":"2024-01-01T10:00:00"}`},
		{"monthly without ordinal", `{"mode":"recurring_monthly","start_date":"2024-01-01","month_weekday":"monday","start_time":"10:00"}`},
		{"unknown mode", `{"mode":"lunar"}`},
		{"empty object", `{}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := mustDecode(t, tc.raw)
			if occs := Generate(m, Window{From: now}, now); len(occs) != 0 {
				t.Fatalf("expected empty sequence, got %d occurrences", len(occs))
			}
		})
	}
}

func TestGenerate_SafetyCeiling(t *testing.T) {
	t.Parallel()

	// Unbounded daily-ish recurrence with no until and no max must stop at
	// the ceiling instead of running away.
	m := mustDecode(t, `{
		"mode": "recurring_weekly",
		"timezone": "UTC",
		"start_date": "2024-01-01",
		"weekdays": ["monday","tuesday","wednesday","thursday","friday","saturday","sunday"],
		"start_time": "08:00"
	}`)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now}, now)
	if len(occs) != maxGenerated {
		t.Fatalf("expected ceiling of %d, got %d", maxGenerated, len(occs))
	}
}

func TestGenerate_TimezoneAware(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "recurring_weekly",
		"timezone": "Europe/Paris",
		"start_date": "2024-06-03",
		"weekdays": ["monday"],
		"start_time": "18:00"
	}`)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{From: now, MaxCount: 1}, now)
	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	paris, _ := time.LoadLocation("Europe/Paris")
	want := time.Date(2024, 6, 3, 18, 0, 0, 0, paris)
	if !occs[0].Start.Equal(want) {
		t.Errorf("want %v, got %v", want, occs[0].Start)
	}
	if occs[0].Timestamp != want.Unix() {
		t.Errorf("timestamp identity broken: want %d, got %d", want.Unix(), occs[0].Timestamp)
	}
}

func TestGenerate_PastMarking(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, `{
		"mode": "series", "timezone": "UTC",
		"series": [
			{"date": "2024-03-01", "start_time": "10:00"},
			{"date": "2024-03-15", "start_time": "10:00"}
		]
	}`)

	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	occs := Generate(m, Window{}, now)
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occs))
	}
	if !occs[0].IsPast || occs[1].IsPast {
		t.Errorf("past marking wrong: %v %v", occs[0].IsPast, occs[1].IsPast)
	}
}
