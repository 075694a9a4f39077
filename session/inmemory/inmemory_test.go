package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
	"github.com/mohammad-safakhou/sparkadvisor/session"
)

func TestEnsureCreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore(time.Hour)

	s1, err := store.Ensure(ctx, "")
	if err != nil || s1.ID == "" {
		t.Fatalf("Ensure new: %v %+v", err, s1)
	}
	s2, err := store.Ensure(ctx, s1.ID)
	if err != nil || s2.ID != s1.ID {
		t.Fatalf("Ensure existing returned %v %+v", err, s2)
	}
	named, _ := store.Ensure(ctx, "chat-42")
	if named.ID != "chat-42" {
		t.Fatalf("expected caller-supplied id to be kept, got %s", named.ID)
	}
}

func TestSaveIsolatesState(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore(time.Hour)
	s, _ := store.Ensure(ctx, "a")
	s.RecordAnalysis("app-1", &recommend.Result{OverallHealth: recommend.HealthWarning, ValidatedRecommendations: []recommend.Validated{{Recommendation: "x"}}}, time.Now())
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.CurrentAppID = "mutated"

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CurrentAppID != "app-1" || got.AnalyzedApps["app-1"].RecommendationCount != 1 {
		t.Fatalf("unexpected stored session %+v", got)
	}
}

func TestCleanupEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemorySessionStore(2 * time.Hour)
	store.now = func() time.Time { return now }

	_, _ = store.Ensure(ctx, "old")
	now = now.Add(90 * time.Minute)
	_, _ = store.Ensure(ctx, "fresh")
	now = now.Add(45 * time.Minute)

	n, err := store.Cleanup(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Cleanup = %d, %v", n, err)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected old session evicted, got %v", err)
	}
	if _, err := store.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh session should survive: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session left, got %d", store.Len())
	}
}
