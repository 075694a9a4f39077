package recommend

import (
	"regexp"
	"strings"
)

var (
	numberedMarker = regexp.MustCompile(`\s*\(\d+\)\s*`)
	categoryPrefix = regexp.MustCompile(`(Performance Optimization:|Best Practice:|Validated:|Resource Profile:|Metrics:|Warning:|Error:|Info:)`)
)

// Split breaks a concatenated telemetry recommendation into its parts. Text
// is first split on "(N)" markers, then before known category prefixes.
func Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if parts := nonEmpty(numberedMarker.Split(text, -1)); len(parts) > 1 {
		return parts
	}

	idx := categoryPrefix.FindAllStringIndex(text, -1)
	if len(idx) > 1 || (len(idx) == 1 && idx[0][0] > 0) {
		var cuts []string
		start := 0
		for _, loc := range idx {
			if loc[0] > start {
				cuts = append(cuts, text[start:loc[0]])
			}
			start = loc[0]
		}
		cuts = append(cuts, text[start:])
		if parts := nonEmpty(cuts); len(parts) > 1 {
			return parts
		}
	}
	return []string{text}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
