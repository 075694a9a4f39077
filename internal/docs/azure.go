package docs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/httpx"
)

// AzureSearch queries an Azure AI Search index over its REST API.
type AzureSearch struct {
	endpoint   string
	index      string
	apiVersion string
	apiKey     string
	http       *httpx.Client
}

func NewAzureSearch(cfg config.SearchConfig, timeout time.Duration) *AzureSearch {
	cfg = cfg.Normalize()
	return &AzureSearch{
		endpoint:   cfg.Endpoint,
		index:      cfg.Index,
		apiVersion: cfg.APIVersion,
		apiKey:     cfg.APIKey,
		http:       httpx.NewClient(timeout, 2, 300*time.Millisecond),
	}
}

func (a *AzureSearch) url(suffix string) string {
	return fmt.Sprintf("%s/indexes/%s%s?api-version=%s",
		a.endpoint, url.PathEscape(a.index), suffix, url.QueryEscape(a.apiVersion))
}

func (a *AzureSearch) headers() map[string]string {
	return map[string]string{"api-key": a.apiKey}
}

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
	Filter string `json:"filter,omitempty"`
	Select string `json:"select"`
}

type searchResponse struct {
	Value []struct {
		ID        string   `json:"id"`
		Content   string   `json:"content"`
		Title     string   `json:"title"`
		Category  []string `json:"category"`
		SourceURL string   `json:"source_url"`
		Filename  string   `json:"filename"`
		Score     float64  `json:"@search.score"`
	} `json:"value"`
}

// CategoryFilter is the OData filter matching documents tagged with category.
func CategoryFilter(category string) string {
	return fmt.Sprintf("category/any(c: c eq '%s')", strings.ReplaceAll(category, "'", "''"))
}

func (a *AzureSearch) Search(ctx context.Context, q Query) ([]Document, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	req := searchRequest{
		Search: q.Text,
		Top:    q.TopK,
		Select: "id,content,title,category,source_url,filename",
	}
	if q.Category != "" {
		req.Filter = CategoryFilter(q.Category)
	}
	var resp searchResponse
	if err := a.http.DoJSON(ctx, http.MethodPost, a.url("/docs/search"), a.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("azure search: %w", err)
	}
	out := make([]Document, 0, len(resp.Value))
	for _, v := range resp.Value {
		cats := v.Category
		if cats == nil {
			cats = []string{}
		}
		out = append(out, Document{
			ID:        v.ID,
			Content:   v.Content,
			Title:     v.Title,
			Category:  cats,
			SourceURL: v.SourceURL,
			Filename:  v.Filename,
			Score:     v.Score,
		})
	}
	return out, nil
}

type indexAction struct {
	Action    string   `json:"@search.action"`
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Title     string   `json:"title"`
	Category  []string `json:"category"`
	SourceURL string   `json:"source_url"`
	Filename  string   `json:"filename"`
}

// Upsert uploads docs with mergeOrUpload semantics.
func (a *AzureSearch) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := struct {
		Value []indexAction `json:"value"`
	}{Value: make([]indexAction, 0, len(docs))}
	for _, d := range docs {
		batch.Value = append(batch.Value, indexAction{
			Action:    "mergeOrUpload",
			ID:        d.ID,
			Content:   d.Content,
			Title:     d.Title,
			Category:  d.Category,
			SourceURL: d.SourceURL,
			Filename:  d.Filename,
		})
	}
	if err := a.http.DoJSON(ctx, http.MethodPost, a.url("/docs/index"), a.headers(), batch, nil); err != nil {
		return fmt.Errorf("azure index upload: %w", err)
	}
	return nil
}

// EnsureIndex creates or updates the index definition: searchable content
// and title, filterable category, source_url and filename.
func (a *AzureSearch) EnsureIndex(ctx context.Context) error {
	field := func(name, typ string, opts map[string]any) map[string]any {
		f := map[string]any{"name": name, "type": typ}
		for k, v := range opts {
			f[k] = v
		}
		return f
	}
	def := map[string]any{
		"name": a.index,
		"fields": []any{
			field("id", "Edm.String", map[string]any{"key": true}),
			field("content", "Edm.String", map[string]any{"searchable": true}),
			field("title", "Edm.String", map[string]any{"searchable": true}),
			field("category", "Collection(Edm.String)", map[string]any{"filterable": true, "facetable": true}),
			field("source_url", "Edm.String", map[string]any{"filterable": true}),
			field("filename", "Edm.String", map[string]any{"filterable": true}),
		},
	}
	if err := a.http.DoJSON(ctx, http.MethodPut, a.url(""), a.headers(), def, nil); err != nil {
		return fmt.Errorf("azure index definition: %w", err)
	}
	return nil
}
