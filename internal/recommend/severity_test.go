package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		text string
		want Severity
	}{
		{"🔴 CRITICAL: executors idle 80% of the time", SeverityCritical},
		{"🟡 MEDIUM - GC overhead 28%", SeverityMedium},
		{"⚫ LOW No critical issues. No action required", SeverityLow},
		{"HIGH skew on stage 4, LOW parallelism", SeverityHigh},
		{"🔴 executors underused", SeverityHigh},
		{"⚫ LOW — executors fine; a previous run showed HIGH GC. No action required", SeverityLow},
		{"(2) **MEDIUM**: CRITICAL path stage 3 is slow", SeverityMedium},
		{"⚫ executors fine, earlier HIGH GC resolved", SeverityLow},
		{"Stage 4 shows HIGH skew and CRITICAL spill", SeverityCritical},
		{"consider low memory settings", SeverityNone},
		{"", SeverityNone},
	}
	for _, tc := range cases {
		if got := ParseSeverity(tc.text); got != tc.want {
			t.Fatalf("ParseSeverity(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestPriorityBands(t *testing.T) {
	bands := map[Severity][2]int{
		SeverityCritical: {1, 9},
		SeverityHigh:     {10, 19},
		SeverityMedium:   {20, 29},
		SeverityLow:      {30, 39},
	}
	for sev, want := range bands {
		lo, hi := sev.PriorityRange()
		if lo != want[0] || hi != want[1] {
			t.Fatalf("%s range = %d-%d, want %d-%d", sev, lo, hi, want[0], want[1])
		}
		if p := PriorityFor(sev, 0); p != lo {
			t.Fatalf("%s first slot = %d, want %d", sev, p, lo)
		}
		if p := PriorityFor(sev, 50); p != hi {
			t.Fatalf("%s overflow slot = %d, want %d", sev, p, hi)
		}
	}
}

func TestBucketOf(t *testing.T) {
	got := []Bucket{BucketOf(1), BucketOf(9), BucketOf(10), BucketOf(29), BucketOf(30), BucketOf(39)}
	want := []Bucket{BucketCritical, BucketCritical, BucketWarning, BucketWarning, BucketInfo, BucketInfo}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("buckets mismatch (-want +got):\n%s", diff)
	}
}

func TestEnforceVerbatimKeepsLeadingLowLabel(t *testing.T) {
	text := "⚫ LOW — executors fine; a previous run showed HIGH GC. No action required"
	kusto := []Recommendation{{Text: text, Source: SourceKusto}}
	vs := []Validated{{Recommendation: "paraphrased", Source: SourceKusto, Priority: 32}}

	out, extra := EnforceVerbatim(vs, kusto)
	if extra != 0 || len(out) != 1 {
		t.Fatalf("unexpected output %+v (extra %d)", out, extra)
	}
	if out[0].Priority != 32 {
		t.Fatalf("LOW item priority = %d, want the judge's 32", out[0].Priority)
	}
	if out[0].Recommendation != text {
		t.Fatalf("telemetry text not restored: %q", out[0].Recommendation)
	}
}
