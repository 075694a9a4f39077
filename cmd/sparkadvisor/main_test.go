package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
)

func TestRenderFormats(t *testing.T) {
	v := map[string]int{"HELPFUL": 2}
	var buf bytes.Buffer
	if err := render(&buf, outputJSON, v, nil); err != nil {
		t.Fatalf("json: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil || got["HELPFUL"] != 2 {
		t.Fatalf("unexpected json output %q (%v)", buf.String(), err)
	}

	buf.Reset()
	if err := render(&buf, outputYAML, v, nil); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "HELPFUL: 2" {
		t.Fatalf("unexpected yaml output %q", buf.String())
	}

	buf.Reset()
	if err := render(&buf, outputMarkdown, v, func() string { return "# report" }); err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if buf.String() != "# report\n" {
		t.Fatalf("unexpected markdown output %q", buf.String())
	}

	if err := render(&buf, "xml", v, nil); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestFormatRowsSortsColumns(t *testing.T) {
	out := formatRows([]kusto.Row{{"b": 2.0, "a": "x"}, {"a": "y"}})
	lines := strings.Split(out, "\n")
	if lines[0] != "| a | b |" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[2] != "| x | 2 |" || lines[3] != "| y |  |" {
		t.Fatalf("unexpected rows %q", out)
	}
	if !strings.Contains(out, "2 rows") {
		t.Fatalf("missing row count: %q", out)
	}
	if formatRows(nil) != "No rows." {
		t.Fatalf("unexpected empty output")
	}
}

func TestFormatCategory(t *testing.T) {
	out := formatCategory("shuffle", []kusto.CategoryMatch{
		{AppID: "a", Source: "fabric", Recommendation: "Repartition\nbefore the join"},
	})
	if !strings.HasPrefix(out, "# Category: shuffle (1)") {
		t.Fatalf("unexpected header %q", out)
	}
	if !strings.Contains(out, "| `a` | fabric | Repartition before the join |") {
		t.Fatalf("unexpected row %q", out)
	}
	if got := formatCategory("io", nil); got != `No recommendations found for category "io".` {
		t.Fatalf("unexpected empty output %q", got)
	}
}

func TestFormatStatsTotals(t *testing.T) {
	out := formatStats(map[store.FeedbackType]int{store.FeedbackHelpful: 3, store.FeedbackPartial: 1})
	if !strings.HasPrefix(out, "HELPFUL") || !strings.Contains(out, "TOTAL        4") {
		t.Fatalf("unexpected stats output %q", out)
	}
}

func TestReadValidateInput(t *testing.T) {
	in, err := readValidateInput(strings.NewReader(`{"recommendations":[{"recommendation":"Enable AQE"}]}`), "-")
	if err != nil {
		t.Fatalf("readValidateInput: %v", err)
	}
	if in.ApplicationID != "unknown" {
		t.Fatalf("expected default application id, got %q", in.ApplicationID)
	}
	if len(in.Recommendations) != 1 || in.Recommendations[0].Text != "Enable AQE" {
		t.Fatalf("unexpected recommendations %+v", in.Recommendations)
	}

	path := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(path, []byte(`{"application_id":"app-1","recommendations":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err = readValidateInput(nil, path)
	if err != nil || in.ApplicationID != "app-1" {
		t.Fatalf("file input: %+v %v", in, err)
	}

	if _, err := readValidateInput(strings.NewReader("{"), "-"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCMD()
	for _, path := range [][]string{
		{"serve"}, {"migrate"}, {"mcp"}, {"analyze"}, {"validate"},
		{"apps", "bad"}, {"apps", "recent"}, {"apps", "healthy"}, {"apps", "pattern"},
		{"apps", "worst"}, {"apps", "patterns"}, {"apps", "category"}, {"apps", "report"},
		{"skew"}, {"scaling"}, {"docs", "index"}, {"docs", "search"},
		{"query", "schema"}, {"feedback", "stats"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not found: %v", path, err)
		}
	}
}

func TestDocsIndexAndSearch(t *testing.T) {
	dir := t.TempDir()
	docsDir := filepath.Join(dir, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	page := "# Shuffle partitions\n\nTune spark.sql.shuffle.partitions to reduce shuffle spill."
	if err := os.WriteFile(filepath.Join(docsDir, "shuffle_tuning.md"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := map[string]any{
		"search": map[string]any{"backend": "bleve", "index_path": filepath.Join(dir, "docs.bleve")},
		"log":    map[string]any{"level": "error"},
	}
	raw, _ := json.Marshal(cfg)
	cfgPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		root := newRootCMD()
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"-c", cfgPath}, args...))
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v (%s)", args, err, out.String())
		}
		return out.String()
	}

	if out := run("docs", "index", docsDir); !strings.Contains(out, "indexed 1 documents") {
		t.Fatalf("unexpected index output %q", out)
	}
	out := run("docs", "search", "-o", "json", "shuffle")
	var res []struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode search output %q: %v", out, err)
	}
	if len(res) != 1 || res[0].Filename != "shuffle_tuning.md" {
		t.Fatalf("unexpected search results %+v", res)
	}
}
