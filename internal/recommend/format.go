package recommend

import (
	"regexp"
	"strings"
)

var (
	numberedLine = regexp.MustCompile(`^\d+\.`)
	keyTerms     = []string{
		"issue:", "fix:", "impact:", "validation:",
		"task distribution", "executor utilization", "data skew",
		"cpu", "memory", "pool", "executor", "driver",
	}
)

// FormatLLMText normalizes generative output into Markdown bullets. Lists and
// bold headers pass through; questions and labels become bold; lines naming a
// Spark resource become bullets.
func FormatLLMText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		switch {
		case s == "":
			out = append(out, "")
		case strings.HasPrefix(s, "-"), strings.HasPrefix(s, "•"), strings.HasPrefix(s, "*"):
			out = append(out, line)
		case numberedLine.MatchString(s):
			out = append(out, line)
		case strings.HasSuffix(s, "?"), strings.HasSuffix(s, ":"):
			out = append(out, "**"+s+"**")
		case hasKeyTerm(strings.ToLower(s)):
			out = append(out, "- "+s)
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func hasKeyTerm(s string) bool {
	for _, t := range keyTerms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
