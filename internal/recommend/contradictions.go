package recommend

import (
	"fmt"
	"regexp"
	"strings"
)

type knob struct {
	name string
	re   *regexp.Regexp
}

var knobs = []knob{
	{"executors", regexp.MustCompile(`\bexecutors?\b`)},
	{"partitions", regexp.MustCompile(`\b(shuffle )?partitions?\b`)},
	{"memory", regexp.MustCompile(`\bmemory\b`)},
	{"cores", regexp.MustCompile(`\bcores?\b`)},
	{"broadcast joins", regexp.MustCompile(`\bbroadcast\b`)},
	{"adaptive query execution", regexp.MustCompile(`\b(aqe|adaptive query)\b`)},
	{"caching", regexp.MustCompile(`\b(cach(e|es|ed|ing)|persist(ing|ed)?)\b`)},
}

var (
	upWords   = regexp.MustCompile(`\b(increase[sd]?|increasing|raise|raising|add|adding|more|enable[sd]?|enabling|scale up|higher|larger|bigger)\b`)
	downWords = regexp.MustCompile(`\b(decrease[sd]?|decreasing|reduce[sd]?|reducing|lower|lowering|remove|removing|fewer|less|disable[sd]?|disabling|scale down|smaller|avoid)\b`)
	sentence  = regexp.MustCompile(`[.!?\n;]+`)
)

// directions maps each knob a text talks about to +1 (up) or -1 (down).
// A knob pushed both ways inside one text is ambiguous and left out.
func directions(text string) map[string]int {
	out := map[string]int{}
	mixed := map[string]bool{}
	for _, s := range sentence.Split(strings.ToLower(text), -1) {
		up, down := upWords.MatchString(s), downWords.MatchString(s)
		if up == down {
			continue
		}
		dir := 1
		if down {
			dir = -1
		}
		for _, k := range knobs {
			if !k.re.MatchString(s) {
				continue
			}
			if prev, ok := out[k.name]; ok && prev != dir {
				mixed[k.name] = true
			}
			out[k.name] = dir
		}
	}
	for k := range mixed {
		delete(out, k)
	}
	return out
}

// DetectContradictions finds pairs of items that push the same Spark knob in
// opposite directions. Both items get the other's text in Contradicts.
func DetectContradictions(vs []Validated) []Contradiction {
	dirs := make([]map[string]int, len(vs))
	for i, v := range vs {
		dirs[i] = directions(v.Recommendation)
	}
	var out []Contradiction
	for i := 0; i < len(vs); i++ {
		for j := i + 1; j < len(vs); j++ {
			name, ok := opposed(dirs[i], dirs[j])
			if !ok {
				continue
			}
			a, b := &vs[i], &vs[j]
			out = append(out, Contradiction{
				Recommendation1: a.Recommendation,
				Recommendation2: b.Recommendation,
				Explanation:     explain(name, *a, *b),
			})
			a.Contradicts = appendUnique(a.Contradicts, b.Recommendation)
			b.Contradicts = appendUnique(b.Contradicts, a.Recommendation)
		}
	}
	return out
}

func opposed(a, b map[string]int) (string, bool) {
	for _, k := range knobs {
		da, okA := a[k.name]
		db, okB := b[k.name]
		if okA && okB && da != db {
			return k.name, true
		}
	}
	return "", false
}

func explain(knobName string, a, b Validated) string {
	winner := a
	if Trust(b.Source) < Trust(a.Source) || (Trust(b.Source) == Trust(a.Source) && b.Priority < a.Priority) {
		winner = b
	}
	return fmt.Sprintf("Opposite guidance on %s; follow the %s recommendation (priority %d) since it is backed by the more trusted source.",
		knobName, winner.Source, winner.Priority)
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}

// MergeContradictions appends found to existing, skipping pairs already
// reported in either order.
func MergeContradictions(existing, found []Contradiction) []Contradiction {
	out := append([]Contradiction{}, existing...)
	seen := map[[2]string]bool{}
	for _, c := range out {
		seen[pairKey(c)] = true
	}
	for _, c := range found {
		if k := pairKey(c); !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

func pairKey(c Contradiction) [2]string {
	if c.Recommendation1 > c.Recommendation2 {
		return [2]string{c.Recommendation2, c.Recommendation1}
	}
	return [2]string{c.Recommendation1, c.Recommendation2}
}
