package docs

import (
	"context"
	"fmt"
	"strings"
)

// Document is one indexed documentation page.
type Document struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Title     string   `json:"title"`
	Category  []string `json:"category"`
	SourceURL string   `json:"source_url"`
	Filename  string   `json:"filename"`
	Score     float64  `json:"score"`
}

// Query is a documentation search request.
type Query struct {
	Text     string
	TopK     int
	Category string // optional exact category filter
}

// Normalize trims the text and clamps TopK to 1..20 (default 5).
func (q Query) Normalize() Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.TrimSpace(q.Category)
	switch {
	case q.TopK == 0:
		q.TopK = 5
	case q.TopK < 1:
		q.TopK = 1
	case q.TopK > 20:
		q.TopK = 20
	}
	return q
}

func (q Query) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("query must be a non-empty string")
	}
	return nil
}

// Searcher finds documentation relevant to a query.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Document, error)
}

// Writer stores documents, replacing any with the same id.
type Writer interface {
	Upsert(ctx context.Context, docs []Document) error
}

// Index is a searchable, writable documentation store.
type Index interface {
	Searcher
	Writer
}

const contextSeparator = "\n\n---\n\n"

// JoinContext concatenates document contents for prompt context.
func JoinContext(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, contextSeparator)
}

// FormatContext renders documents with title, categories and source, the
// way they are shown to a reader.
func FormatContext(docs []Document) string {
	if len(docs) == 0 {
		return "No relevant documentation found."
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		cats := "uncategorized"
		if len(d.Category) > 0 {
			cats = strings.Join(d.Category, ", ")
		}
		src := ""
		if d.SourceURL != "" {
			src = "Source: " + d.SourceURL
		}
		parts = append(parts, fmt.Sprintf("Document: %s\nCategories: %s\n%s\n%s", d.Title, cats, src, d.Content))
	}
	return strings.Join(parts, contextSeparator)
}
