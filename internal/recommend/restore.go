package recommend

const (
	restoredPriority  = 15
	restoredReasoning = "Auto-restored - judge filtered this telemetry recommendation"
	restoredAction    = "Review this recommendation from Kusto telemetry"
)

// RestoreMetadata copies input metadata onto judged items. The judge keeps
// source and order, so the i-th output of a source gets the i-th input
// metadata of that source. Items past the input count keep none.
func RestoreMetadata(vs []Validated, groups map[Source][]Recommendation) {
	seen := map[Source]int{}
	for i := range vs {
		src := vs[i].Source
		n := seen[src]
		seen[src] = n + 1
		if in := groups[src]; n < len(in) {
			vs[i].Metadata = in[n].Metadata
		}
	}
}

// EnforceVerbatim puts the original telemetry text back on every kusto item
// and pulls its priority into the band of the severity the text declares.
// Kusto items beyond the input count are dropped; their number is returned.
func EnforceVerbatim(vs []Validated, kusto []Recommendation) ([]Validated, int) {
	out := vs[:0]
	n, extra := 0, 0
	for _, v := range vs {
		if v.Source != SourceKusto {
			out = append(out, v)
			continue
		}
		if n >= len(kusto) {
			extra++
			continue
		}
		in := kusto[n]
		v.Recommendation = in.Text
		if sev := ParseSeverity(in.Text); sev != SeverityNone && !sev.Contains(v.Priority) {
			v.Priority = PriorityFor(sev, n)
		}
		n++
		out = append(out, v)
	}
	return out, extra
}

// RestoreDropped appends every kusto input the judge left out, in input
// order. It returns the number of restored items.
func RestoreDropped(vs []Validated, kusto []Recommendation) ([]Validated, int) {
	have := 0
	for _, v := range vs {
		if v.Source == SourceKusto {
			have++
		}
	}
	restored := 0
	for i := have; i < len(kusto); i++ {
		vs = append(vs, Validated{
			Recommendation: kusto[i].Text,
			Source:         SourceKusto,
			Confidence:     ConfidenceHigh,
			Priority:       restoredPriority,
			Reasoning:      restoredReasoning,
			Action:         restoredAction,
			Contradicts:    []string{},
			Metadata:       kusto[i].Metadata,
		})
		restored++
	}
	return vs, restored
}

// Restored reports whether v was appended by RestoreDropped.
func Restored(v Validated) bool {
	return v.Source == SourceKusto && v.Reasoning == restoredReasoning
}
