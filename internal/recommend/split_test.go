package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{"numbered", "(1) Increase executors (2) Enable AQE (3) Cache lookup table",
			[]string{"Increase executors", "Enable AQE", "Cache lookup table"}},
		{"categories", "Performance Optimization: repartition input Best Practice: enable AQE Warning: high GC",
			[]string{"Performance Optimization: repartition input", "Best Practice: enable AQE", "Warning: high GC"}},
		{"leading text before category", "Summary line Info: all good",
			[]string{"Summary line", "Info: all good"}},
		{"single", "  🟡 MEDIUM GC overhead is 27%  ", []string{"🟡 MEDIUM GC overhead is 27%"}},
		{"single category", "Metrics: efficiency 0.8", []string{"Metrics: efficiency 0.8"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Split(tc.in)); diff != "" {
				t.Fatalf("Split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
