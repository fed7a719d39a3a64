package schedule

// Template naming convention for schedule rendering:
// "schedule/<mode>-<variant>", then "schedule/<mode>", then the guaranteed
// default. The renderer tries candidates in order and uses the first that
// resolves; selection logic stays here so the view layer holds no
// scheduling knowledge.

// FallbackTemplate always exists and terminates every candidate list.
const FallbackTemplate = "schedule/default"

// TemplateCandidates returns the ordered template candidates for rendering
// a schedule of the given mode. Custom overrides (theme-level template
// names) are tried first; the fallback is always appended last.
func TemplateCandidates(mode Mode, variant string, overrides []string) []string {
	if mode == "" {
		mode = ModeFallback
	}

	candidates := make([]string, 0, len(overrides)+3)
	candidates = append(candidates, overrides...)
	if variant != "" {
		candidates = append(candidates, "schedule/"+string(mode)+"-"+variant)
	}
	candidates = append(candidates, "schedule/"+string(mode), FallbackTemplate)

	return dedupStrings(candidates)
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
