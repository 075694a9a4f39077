package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

func TestParseFeedback(t *testing.T) {
	cases := []struct {
		in      string
		typ     FeedbackType
		comment string
		ok      bool
	}{
		{"HELPFUL", FeedbackHelpful, "", true},
		{"helpful thanks!", FeedbackHelpful, "thanks!", true},
		{"NOT HELPFUL reason: too generic", FeedbackNotHelpful, "reason: too generic", true},
		{"  partial missing the shuffle stages", FeedbackPartial, "missing the shuffle stages", true},
		{"analyze app-1", "", "", false},
		{"Not helpful: wrong executor count", FeedbackNotHelpful, "wrong executor count", true},
		{"HELPFULNESS of the report is unclear", "", "", false},
		{"partially done, what next?", "", "", false},
		{"helpful_tip please", "", "", false},
		{"partıal coverage of stages", "", "", false},
	}
	for _, tc := range cases {
		typ, comment, ok := ParseFeedback(tc.in)
		if typ != tc.typ || comment != tc.comment || ok != tc.ok {
			t.Fatalf("ParseFeedback(%q) = %q %q %v", tc.in, typ, comment, ok)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	got := Truncate(strings.Repeat("a", 20), 10)
	if got != strings.Repeat("a", 10)+truncatedMarker {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSaveFeedbackTruncatesResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feedback`)).
		WithArgs("sess-1", "N/A", "analyze", "analysis", strings.Repeat("x", 5)+truncatedMarker,
			"PARTIAL", "no stages", 3, 1, 1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := st.SaveFeedback(context.Background(), Feedback{
		SessionID:           "sess-1",
		QueryText:           "analyze",
		QueryIntent:         "analysis",
		ResultText:          strings.Repeat("x", 50),
		Type:                FeedbackPartial,
		Comment:             "no stages",
		RecommendationCount: 3,
		KustoCount:          1,
		RAGCount:            1,
		LLMCount:            1,
	}, 5)
	if err != nil {
		t.Fatalf("SaveFeedback: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveFeedbackRejectsUnknownType(t *testing.T) {
	st := &Store{}
	if _, err := st.SaveFeedback(context.Background(), Feedback{Type: "MEH"}, 10); err == nil {
		t.Fatalf("expected error for unknown feedback type")
	}
}

func TestSaveAndLoadAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	res := &recommend.Result{
		ApplicationID:        "app-1",
		OverallHealth:        recommend.HealthWarning,
		WarningCount:         2,
		TotalRecommendations: 2,
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO analyses`)).
		WithArgs(sqlmock.AnyArg(), "app-1", "sess-1", "warning", 0, 2, 0, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := st.SaveAnalysis(context.Background(), "sess-1", res)
	if err != nil || id == "" {
		t.Fatalf("SaveAnalysis: %q %v", id, err)
	}

	payload, _ := json.Marshal(res)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM analyses WHERE application_id=$1`)).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "session_id", "result", "created_at"}).
			AddRow(id, "app-1", "sess-1", payload, created))

	rec, err := st.LatestAnalysis(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("LatestAnalysis: %v", err)
	}
	if rec.Result.OverallHealth != recommend.HealthWarning || rec.Result.WarningCount != 2 || !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM analyses WHERE id=$1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "session_id", "result", "created_at"}))

	if _, err := st.GetAnalysis(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFeedbackStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT feedback_type, COUNT(*) FROM feedback GROUP BY feedback_type`)).
		WillReturnRows(sqlmock.NewRows([]string{"feedback_type", "count"}).
			AddRow("HELPFUL", 4).AddRow("PARTIAL", 1))

	stats, err := st.FeedbackStats(context.Background())
	if err != nil {
		t.Fatalf("FeedbackStats: %v", err)
	}
	if stats[FeedbackHelpful] != 4 || stats[FeedbackPartial] != 1 || stats[FeedbackNotHelpful] != 0 {
		t.Fatalf("unexpected stats %v", stats)
	}
}
