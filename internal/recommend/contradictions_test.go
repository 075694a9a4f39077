package recommend

import (
	"strings"
	"testing"
)

func TestDetectContradictions(t *testing.T) {
	vs := []Validated{
		{Recommendation: "🔴 HIGH Executors are idle. Reduce executors to 4.", Source: SourceKusto, Priority: 12},
		{Recommendation: "Increase the number of executors for more parallelism", Source: SourceLLM, Priority: 33},
		{Recommendation: "Enable AQE to coalesce shuffle partitions", Source: SourceRAG, Priority: 21},
	}
	found := DetectContradictions(vs)
	if len(found) != 1 {
		t.Fatalf("expected 1 contradiction, got %d: %+v", len(found), found)
	}
	c := found[0]
	if c.Recommendation1 != vs[0].Recommendation || c.Recommendation2 != vs[1].Recommendation {
		t.Fatalf("unexpected pair %+v", c)
	}
	if want := "follow the kusto recommendation"; !strings.Contains(c.Explanation, want) {
		t.Fatalf("explanation %q should contain %q", c.Explanation, want)
	}
	if len(vs[0].Contradicts) != 1 || len(vs[1].Contradicts) != 1 || len(vs[2].Contradicts) != 0 {
		t.Fatalf("contradicts not cross-linked: %+v", vs)
	}
}

func TestDetectContradictionsSkipsMixedDirections(t *testing.T) {
	vs := []Validated{
		{Recommendation: "Increase memory. Later reduce memory if GC drops.", Source: SourceRAG},
		{Recommendation: "Reduce memory per executor", Source: SourceLLM},
	}
	if found := DetectContradictions(vs); len(found) != 0 {
		t.Fatalf("expected no contradiction for mixed guidance, got %+v", found)
	}
}

func TestMergeContradictionsDedupsPairs(t *testing.T) {
	existing := []Contradiction{{Recommendation1: "a", Recommendation2: "b", Explanation: "judge"}}
	found := []Contradiction{{Recommendation1: "b", Recommendation2: "a", Explanation: "local"}, {Recommendation1: "a", Recommendation2: "c"}}
	out := MergeContradictions(existing, found)
	if len(out) != 2 || out[0].Explanation != "judge" {
		t.Fatalf("unexpected merge %+v", out)
	}
}
