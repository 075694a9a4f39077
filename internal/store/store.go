package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a postgres connection pool and pings it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// AnalysisRecord is one persisted analysis result.
type AnalysisRecord struct {
	ID            string
	ApplicationID string
	SessionID     string
	Result        recommend.Result
	CreatedAt     time.Time
}

// SaveAnalysis stores res and returns the generated analysis id.
func (s *Store) SaveAnalysis(ctx context.Context, sessionID string, res *recommend.Result) (string, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO analyses (id, application_id, session_id, overall_health, critical_count, warning_count, info_count, total_recommendations, result, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
		id, res.ApplicationID, sessionID, string(res.OverallHealth),
		res.CriticalCount, res.WarningCount, res.InfoCount, res.TotalRecommendations, payload)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

const analysisColumns = `id, application_id, session_id, result, created_at`

func scanAnalysis(row *sql.Row) (*AnalysisRecord, error) {
	var (
		rec     AnalysisRecord
		payload []byte
	)
	if err := row.Scan(&rec.ID, &rec.ApplicationID, &rec.SessionID, &payload, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &rec.Result); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func (s *Store) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	return scanAnalysis(s.DB.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id=$1`, id))
}

// LatestAnalysis returns the most recent analysis of appID.
func (s *Store) LatestAnalysis(ctx context.Context, appID string) (*AnalysisRecord, error) {
	return scanAnalysis(s.DB.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE application_id=$1 ORDER BY created_at DESC LIMIT 1`, appID))
}

// truncatedMarker is appended when stored text was cut.
const truncatedMarker = "... [truncated]"

// Truncate cuts text to max runes and appends the truncation marker.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return strings.TrimRight(string(r[:max]), " ") + truncatedMarker
}
