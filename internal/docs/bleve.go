package docs

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"
)

// BleveIndex is a local full-text documentation index.
type BleveIndex struct {
	index bleve.Index
}

type bleveDoc struct {
	Content   string   `json:"content"`
	Title     string   `json:"title"`
	Category  []string `json:"category"`
	SourceURL string   `json:"source_url"`
	Filename  string   `json:"filename"`
}

func indexMapping() mapping.IndexMapping {
	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("category", exact)
	doc.AddFieldMappingsAt("source_url", exact)
	doc.AddFieldMappingsAt("filename", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// OpenBleve opens the index at path, creating it when missing. An empty path
// gives an in-memory index.
func OpenBleve(path string) (*BleveIndex, error) {
	var (
		idx bleve.Index
		err error
	)
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(indexMapping())
	default:
		if _, statErr := os.Stat(path); statErr == nil {
			idx, err = bleve.Open(path)
		} else {
			idx, err = bleve.New(path, indexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &BleveIndex{index: idx}, nil
}

func (b *BleveIndex) Close() error { return b.index.Close() }

// Count returns the number of indexed documents.
func (b *BleveIndex) Count() (uint64, error) { return b.index.DocCount() }

func (b *BleveIndex) Upsert(_ context.Context, docs []Document) error {
	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, bleveDoc{
			Content:   d.Content,
			Title:     d.Title,
			Category:  d.Category,
			SourceURL: d.SourceURL,
			Filename:  d.Filename,
		}); err != nil {
			return fmt.Errorf("index %s: %w", d.ID, err)
		}
	}
	return b.index.Batch(batch)
}

func (b *BleveIndex) Search(ctx context.Context, q Query) ([]Document, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	text := bleve.NewMatchQuery(q.Text)
	req := bleve.NewSearchRequestOptions(text, q.TopK, 0, false)
	if q.Category != "" {
		cat := bleve.NewTermQuery(q.Category)
		cat.SetField("category")
		req = bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(text, cat), q.TopK, 0, false)
	}
	req.Fields = []string{"*"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	out := make([]Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, Document{
			ID:        hit.ID,
			Content:   fieldString(hit.Fields, "content"),
			Title:     fieldString(hit.Fields, "title"),
			Category:  fieldStrings(hit.Fields, "category"),
			SourceURL: fieldString(hit.Fields, "source_url"),
			Filename:  fieldString(hit.Fields, "filename"),
			Score:     hit.Score,
		})
	}
	return out, nil
}

func fieldString(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

// fieldStrings handles bleve returning a lone string for one-element arrays.
func fieldStrings(fields map[string]interface{}, key string) []string {
	switch v := fields[key].(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
