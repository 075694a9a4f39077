package advisor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor/advisortest"
	"github.com/mohammad-safakhou/sparkadvisor/session/inmemory"
)

var errUnavailable = errors.New("unavailable")

type harness struct {
	advisor  *Advisor
	kusto    *advisortest.Telemetry
	llm      *advisortest.LLM
	docs     *advisortest.Searcher
	history  *advisortest.History
	sessions *inmemory.Store
}

// newHarness wires an Advisor over fakes. A nil llm or searcher leaves the
// matching feature unconfigured.
func newHarness(t *testing.T, tel *advisortest.Telemetry, llm *advisortest.LLM, searcher *advisortest.Searcher) *harness {
	t.Helper()
	h := &harness{
		kusto:    tel,
		llm:      llm,
		docs:     searcher,
		history:  &advisortest.History{},
		sessions: inmemory.NewInMemorySessionStore(time.Hour),
	}
	opts := Options{
		Kusto:    tel,
		Sessions: h.sessions,
		History:  h.history,
		Config:   config.AdvisorConfig{},
		Models:   config.LLMConfig{Judge: config.ModelParams{Temperature: 0.3}},
	}
	if llm != nil {
		opts.LLM = llm
	}
	if searcher != nil {
		opts.Docs = searcher
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.advisor = a
	return h
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.Contains(v, s) {
			return true
		}
	}
	return false
}
