package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// AppSummary is what a session remembers about one analyzed application.
type AppSummary struct {
	Health              recommend.Health `json:"health"`
	RecommendationCount int              `json:"recommendation_count"`
	CriticalCount       int              `json:"critical_count"`
	AnalyzedAt          time.Time        `json:"analyzed_at"`
}

// Session is the conversational state of one client.
type Session struct {
	ID                  string                `json:"id"`
	CurrentAppID        string                `json:"current_app_id,omitempty"`
	AnalyzedApps        map[string]AppSummary `json:"analyzed_apps"`
	LastRecommendations []recommend.Validated `json:"last_recommendations"`
	LastUpdated         time.Time             `json:"last_updated"`
	CreatedAt           time.Time             `json:"created_at"`
}

// New returns an empty session stamped with now.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:                  id,
		AnalyzedApps:        map[string]AppSummary{},
		LastRecommendations: []recommend.Validated{},
		LastUpdated:         now,
		CreatedAt:           now,
	}
}

// RecordAnalysis makes appID current and remembers the result.
func (s *Session) RecordAnalysis(appID string, res *recommend.Result, now time.Time) {
	s.CurrentAppID = appID
	if s.AnalyzedApps == nil {
		s.AnalyzedApps = map[string]AppSummary{}
	}
	s.AnalyzedApps[appID] = AppSummary{
		Health:              res.OverallHealth,
		RecommendationCount: len(res.ValidatedRecommendations),
		CriticalCount:       res.CriticalCount,
		AnalyzedAt:          now,
	}
	s.LastRecommendations = append([]recommend.Validated(nil), res.ValidatedRecommendations...)
	s.LastUpdated = now
}

// Clone returns a deep copy so callers never share store-owned state.
func (s *Session) Clone() *Session {
	c := *s
	c.AnalyzedApps = make(map[string]AppSummary, len(s.AnalyzedApps))
	for k, v := range s.AnalyzedApps {
		c.AnalyzedApps[k] = v
	}
	c.LastRecommendations = append([]recommend.Validated(nil), s.LastRecommendations...)
	return &c
}

// Store persists sessions.
type Store interface {
	// Ensure returns the session with id, creating it when missing. An empty
	// id creates a session with a fresh id.
	Ensure(ctx context.Context, id string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Cleanup evicts idle sessions and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
}

// RunJanitor calls Cleanup every interval until ctx is done.
func RunJanitor(ctx context.Context, store Store, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if err != nil {
				logger.Warn("session cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
