package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
	"github.com/mohammad-safakhou/sparkadvisor/session"
)

// SearchDocs queries the documentation index.
func (a *Advisor) SearchDocs(ctx context.Context, q docs.Query) ([]docs.Document, error) {
	if a.docs == nil {
		return nil, errors.New("documentation search is not configured")
	}
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, span := a.tracer.Start(ctx, "advisor.search_docs")
	defer span.End()
	return a.docs.Search(ctx, q)
}

// Session loads a session by id.
func (a *Advisor) Session(ctx context.Context, id string) (*session.Session, error) {
	if a.sessions == nil {
		return nil, session.ErrNotFound
	}
	return a.sessions.Get(ctx, id)
}

// SubmitFeedback stores one rating.
func (a *Advisor) SubmitFeedback(ctx context.Context, f store.Feedback) (int64, error) {
	if a.history == nil {
		return 0, ErrHistoryDisabled
	}
	if !f.Type.Valid() {
		return 0, fmt.Errorf("feedback type must be one of HELPFUL, NOT_HELPFUL, PARTIAL")
	}
	return a.history.SaveFeedback(ctx, f, a.cfg.MaxFeedbackChars)
}

// FeedbackFromMessage turns a "HELPFUL ..." style chat message into feedback
// about the session's last analysis. ok is false when message is not feedback.
func (a *Advisor) FeedbackFromMessage(ctx context.Context, sessionID, message string) (store.Feedback, bool) {
	typ, comment, ok := store.ParseFeedback(message)
	if !ok {
		return store.Feedback{}, false
	}
	f := store.Feedback{SessionID: sessionID, Type: typ, Comment: comment, QueryIntent: "analysis"}
	sess, err := a.Session(ctx, sessionID)
	if err != nil {
		return f, true
	}
	f.ApplicationID = sess.CurrentAppID
	f.QueryText = "analyze " + sess.CurrentAppID
	f.RecommendationCount = len(sess.LastRecommendations)
	var lines []string
	for _, v := range sess.LastRecommendations {
		switch {
		case v.FromKusto():
			f.KustoCount++
		case v.Source == recommend.SourceRAG:
			f.RAGCount++
		default:
			f.LLMCount++
		}
		lines = append(lines, v.Recommendation)
	}
	f.ResultText = strings.Join(lines, "\n\n")
	return f, true
}

// FeedbackStats counts stored feedback per type.
func (a *Advisor) FeedbackStats(ctx context.Context) (map[store.FeedbackType]int, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.FeedbackStats(ctx)
}

// LatestAnalysis returns the most recent stored analysis of appID.
func (a *Advisor) LatestAnalysis(ctx context.Context, appID string) (*store.AnalysisRecord, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.LatestAnalysis(ctx, appID)
}
