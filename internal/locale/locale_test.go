package locale

import (
	"testing"
	"time"
)

func TestFormatTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		h, m int
		want string
	}{
		{18, 0, "18h00"},
		{9, 30, "9h30"},
		{0, 5, "0h05"},
	}
	for _, tc := range cases {
		ts := time.Date(2024, 1, 1, tc.h, tc.m, 0, 0, time.UTC)
		if got := French.FormatTime(ts); got != tc.want {
			t.Errorf("FormatTime(%02d:%02d) = %q, want %q", tc.h, tc.m, got, tc.want)
		}
	}
}

func TestJoinNames(t *testing.T) {
	t.Parallel()

	cases := []struct {
		loc   *Locale
		names []string
		want  string
	}{
		{French, nil, ""},
		{French, []string{"mardi"}, "mardi"},
		{French, []string{"mardi", "jeudi"}, "mardi et jeudi"},
		{French, []string{"lundi", "mardi", "jeudi"}, "lundi, mardi et jeudi"},
		{English, []string{"Tuesday", "Thursday"}, "Tuesday and Thursday"},
	}
	for _, tc := range cases {
		if got := tc.loc.JoinNames(tc.names); got != tc.want {
			t.Errorf("JoinNames(%v) = %q, want %q", tc.names, got, tc.want)
		}
	}
}

func TestWeekdayName(t *testing.T) {
	t.Parallel()

	if got := French.WeekdayName(time.Monday); got != "lundi" {
		t.Errorf("monday = %q", got)
	}
	if got := French.WeekdayName(time.Sunday); got != "dimanche" {
		t.Errorf("sunday = %q", got)
	}
	if got := English.WeekdayName(time.Wednesday); got != "Wednesday" {
		t.Errorf("wednesday = %q", got)
	}
}

func TestLoadDefaultsToFrench(t *testing.T) {
	t.Parallel()

	if Load("") != French || Load("xx") != French {
		t.Error("unknown codes must fall back to French")
	}
	if Load("EN") != English {
		t.Error("en must load the English locale")
	}
}

func TestOrdinalName(t *testing.T) {
	t.Parallel()

	if got := English.OrdinalName(2); got != "second" {
		t.Errorf("2 = %q", got)
	}
	if got := English.OrdinalName(-1); got != "last" {
		t.Errorf("-1 = %q", got)
	}
	if got := English.OrdinalName(0); got != "" {
		t.Errorf("0 = %q", got)
	}
}
