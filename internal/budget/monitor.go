package budget

import (
	"sync"
	"time"
)

// Monitor tracks token usage across the LLM calls of one analysis.
type Monitor struct {
	config     Config
	tokensUsed int64
	calls      int
	startTime  time.Time
	mu         sync.Mutex
}

// NewMonitor starts tracking usage against cfg.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{
		config:    cfg,
		startTime: time.Now(),
	}
}

// Allow reports whether a call estimated at tokens still fits the analysis limit.
func (m *Monitor) Allow(tokens int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.MaxAnalysisTokens > 0 && m.tokensUsed+tokens > m.config.MaxAnalysisTokens {
		return ErrExceeded{Kind: "analysis_tokens", Usage: m.tokensUsed + tokens, Limit: m.config.MaxAnalysisTokens}
	}
	return nil
}

// Add records tokens spent by one call, returning an error once the limit is breached.
func (m *Monitor) Add(tokens int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokensUsed += tokens
	m.calls++
	if m.config.MaxAnalysisTokens > 0 && m.tokensUsed > m.config.MaxAnalysisTokens {
		return ErrExceeded{Kind: "analysis_tokens", Usage: m.tokensUsed, Limit: m.config.MaxAnalysisTokens}
	}
	return nil
}

// Usage returns tokens spent, calls made and elapsed time.
func (m *Monitor) Usage() (tokens int64, calls int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokensUsed, m.calls, time.Since(m.startTime)
}
