package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type FeedbackType string

const (
	FeedbackHelpful    FeedbackType = "HELPFUL"
	FeedbackNotHelpful FeedbackType = "NOT_HELPFUL"
	FeedbackPartial    FeedbackType = "PARTIAL"
)

func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackHelpful, FeedbackNotHelpful, FeedbackPartial:
		return true
	}
	return false
}

// ParseFeedback recognises chat messages of the form "HELPFUL ...",
// "NOT HELPFUL ..." or "PARTIAL ..." and splits off the comment. The keyword
// must be a whole word.
func ParseFeedback(message string) (FeedbackType, string, bool) {
	trimmed := strings.TrimSpace(message)
	for _, p := range []struct {
		prefix string
		typ    FeedbackType
	}{
		{"NOT HELPFUL", FeedbackNotHelpful},
		{"NOT_HELPFUL", FeedbackNotHelpful},
		{"HELPFUL", FeedbackHelpful},
		{"PARTIAL", FeedbackPartial},
	} {
		n := len(p.prefix)
		if len(trimmed) < n || !strings.EqualFold(trimmed[:n], p.prefix) {
			continue
		}
		rest := trimmed[n:]
		if r, _ := utf8.DecodeRuneInString(rest); rest != "" && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		return p.typ, strings.TrimSpace(strings.TrimLeft(rest, " \t:-,.")), true
	}
	return "", "", false
}

// Feedback is one user rating of an answer.
type Feedback struct {
	ID                  int64        `json:"id"`
	CreatedAt           time.Time    `json:"created_at"`
	SessionID           string       `json:"session_id"`
	ApplicationID       string       `json:"application_id"`
	QueryText           string       `json:"query_text"`
	QueryIntent         string       `json:"query_intent"`
	ResultText          string       `json:"result_text"`
	Type                FeedbackType `json:"feedback_type"`
	Comment             string       `json:"comment"`
	RecommendationCount int          `json:"recommendation_count"`
	KustoCount          int          `json:"kusto_count"`
	RAGCount            int          `json:"rag_count"`
	LLMCount            int          `json:"llm_count"`
}

// SaveFeedback inserts f, truncating the result text to maxResult runes, and
// returns the row id.
func (s *Store) SaveFeedback(ctx context.Context, f Feedback, maxResult int) (int64, error) {
	if !f.Type.Valid() {
		return 0, fmt.Errorf("invalid feedback type %q", f.Type)
	}
	if f.ApplicationID == "" {
		f.ApplicationID = "N/A"
	}
	var id int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO feedback (session_id, application_id, query_text, query_intent, result_text, feedback_type, comment, recommendation_count, kusto_count, rag_count, llm_count, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
RETURNING id`,
		f.SessionID, f.ApplicationID, f.QueryText, f.QueryIntent, Truncate(f.ResultText, maxResult),
		string(f.Type), f.Comment, f.RecommendationCount, f.KustoCount, f.RAGCount, f.LLMCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}
	return id, nil
}

// FeedbackStats counts feedback rows per type.
func (s *Store) FeedbackStats(ctx context.Context) (map[FeedbackType]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT feedback_type, COUNT(*) FROM feedback GROUP BY feedback_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[FeedbackType]int{}
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[FeedbackType(typ)] = n
	}
	return out, rows.Err()
}
