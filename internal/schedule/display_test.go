package schedule

import "testing"

func TestTemplateCandidates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		mode      Mode
		variant   string
		overrides []string
		want      []string
	}{
		{
			name: "mode only",
			mode: ModeWeekly,
			want: []string{"schedule/recurring_weekly", "schedule/default"},
		},
		{
			name:    "mode with variant",
			mode:    ModeFixed,
			variant: "card",
			want:    []string{"schedule/fixed-card", "schedule/fixed", "schedule/default"},
		},
		{
			name:      "overrides come first",
			mode:      ModeSeries,
			variant:   "list",
			overrides: []string{"theme/agenda"},
			want:      []string{"theme/agenda", "schedule/series-list", "schedule/series", "schedule/default"},
		},
		{
			name: "empty mode falls back",
			mode: "",
			want: []string{"schedule/fallback", "schedule/default"},
		},
		{
			name:      "duplicates collapse",
			mode:      ModeFixed,
			overrides: []string{"schedule/fixed", "", "schedule/fixed"},
			want:      []string{"schedule/fixed", "schedule/default"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := TemplateCandidates(tc.mode, tc.variant, tc.overrides)
			if len(got) != len(tc.want) {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("want %v, got %v", tc.want, got)
				}
			}
			if got[len(got)-1] != FallbackTemplate {
				t.Fatalf("last candidate must be the fallback, got %v", got)
			}
		})
	}
}
