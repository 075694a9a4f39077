package kusto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/httpx"
)

var (
	// ErrNotFound is returned when an application has no rows in a table.
	ErrNotFound = errors.New("kusto: not found")
	// ErrUnsafeQuery rejects pass-through queries that could write or drop data.
	ErrUnsafeQuery = errors.New("kusto: unsafe query")
)

// Client runs read-only KQL against one Eventhouse database over the v1 REST
// endpoints.
type Client struct {
	cluster  string
	database string
	token    string
	tables   config.KustoTables
	http     *httpx.Client
	logger   *zap.Logger
}

// New builds a client from configuration. The bearer token is used as is.
func New(cfg config.KustoConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.Normalize()
	return &Client{
		cluster:  cfg.ClusterURI,
		database: cfg.Database,
		token:    cfg.Token,
		tables:   cfg.Tables,
		http:     httpx.NewClient(cfg.Timeout, cfg.MaxRetries, 500*time.Millisecond),
		logger:   logger,
	}
}

// Tables returns the configured table names.
func (c *Client) Tables() config.KustoTables { return c.tables }

type queryRequest struct {
	DB         string          `json:"db"`
	CSL        string          `json:"csl"`
	Properties *queryProperties `json:"properties,omitempty"`
}

type queryProperties struct {
	Parameters map[string]string `json:"Parameters,omitempty"`
}

type v1Response struct {
	Tables []struct {
		TableName string `json:"TableName"`
		Columns   []struct {
			ColumnName string `json:"ColumnName"`
			DataType   string `json:"DataType"`
		} `json:"Columns"`
		Rows [][]any `json:"Rows"`
	} `json:"Tables"`
}

// Query executes csl with the given query parameters and returns the rows of
// the primary result table. Control commands (".show ...") go to the
// management endpoint.
func (c *Client) Query(ctx context.Context, csl string, params map[string]any) ([]Row, error) {
	csl = strings.TrimSpace(csl)
	path := "/v1/rest/query"
	if strings.HasPrefix(csl, ".") {
		path = "/v1/rest/mgmt"
	}
	req := queryRequest{DB: c.database, CSL: csl}
	if len(params) > 0 {
		p := make(map[string]string, len(params))
		for k, v := range params {
			p[k] = fmt.Sprint(v)
		}
		req.Properties = &queryProperties{Parameters: p}
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.token,
		"Accept":        "application/json",
	}

	start := time.Now()
	var resp v1Response
	if err := c.http.DoJSON(ctx, http.MethodPost, c.cluster+path, headers, req, &resp); err != nil {
		c.logger.Warn("kusto query failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("kusto query: %w", err)
	}
	if len(resp.Tables) == 0 {
		return []Row{}, nil
	}
	t := resp.Tables[0]
	rows := make([]Row, 0, len(t.Rows))
	for _, raw := range t.Rows {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(raw) {
				row[col.ColumnName] = raw[i]
			}
		}
		rows = append(rows, row)
	}
	c.logger.Debug("kusto query", zap.Int("rows", len(rows)), zap.Duration("elapsed", time.Since(start)))
	return rows, nil
}

// Row is one result record keyed by column name.
type Row map[string]any

// String returns the column as text; nil becomes "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the column as a number, parsing numeric strings.
func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		var f float64
		if _, err := fmt.Sscan(strings.TrimSpace(v), &f); err == nil {
			return f
		}
	}
	return 0
}

func (r Row) Int(key string) int { return int(r.Float(key)) }

// Bool accepts booleans and "true"/"false" strings.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}

// Has reports whether the column is present and non-null.
func (r Row) Has(key string) bool { return r[key] != nil }
