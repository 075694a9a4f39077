package docs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const uploadBatch = 100

type fileMeta struct {
	Filename    string   `json:"filename"`
	Category    []string `json:"category"`
	SourceURL   string   `json:"source_url"`
	Description string   `json:"description"`
}

// Indexer loads a directory of Markdown pages into a Writer.
type Indexer struct {
	writer Writer
	logger *zap.Logger
}

func NewIndexer(w Writer, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{writer: w, logger: logger}
}

// IndexDirectory indexes every *.md file below dir and returns the count.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (int, error) {
	docs, err := LoadDirectory(dir)
	if err != nil {
		return 0, err
	}
	for start := 0; start < len(docs); start += uploadBatch {
		end := start + uploadBatch
		if end > len(docs) {
			end = len(docs)
		}
		if err := ix.writer.Upsert(ctx, docs[start:end]); err != nil {
			return start, err
		}
	}
	for _, d := range docs {
		ix.logger.Debug("indexed document", zap.String("filename", d.Filename), zap.Strings("category", d.Category))
	}
	ix.logger.Info("documentation indexed", zap.String("dir", dir), zap.Int("documents", len(docs)))
	return len(docs), nil
}

// LoadDirectory reads the Markdown corpus under dir. Categories and source
// URLs come from dir/metadata.json when present.
func LoadDirectory(dir string) ([]Document, error) {
	meta, err := loadMetadata(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		m := meta[name]
		cats := m.Category
		if len(cats) == 0 {
			cats = []string{"uncategorized"}
		}
		docs = append(docs, Document{
			ID:        DocumentID(path),
			Content:   StripHTML(string(raw)),
			Title:     TitleFromFilename(name),
			Category:  cats,
			SourceURL: m.SourceURL,
			Filename:  name,
		})
	}
	return docs, nil
}

func loadMetadata(dir string) (map[string]fileMeta, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]fileMeta{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []fileMeta
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse metadata.json: %w", err)
	}
	out := make(map[string]fileMeta, len(list))
	for _, m := range list {
		out[m.Filename] = m
	}
	return out, nil
}

// DocumentID builds a search-safe key: the base name with "-" and spaces
// turned into "_", plus the first 8 hex digits of the path's MD5.
func DocumentID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".md")
	base = strings.NewReplacer(" ", "_", "-", "_").Replace(base)
	sum := md5.Sum([]byte(path))
	return base + "_" + hex.EncodeToString(sum[:])[:8]
}

// TitleFromFilename turns "spark_best-practices.md" into "Spark Best-Practices".
func TitleFromFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSuffix(name, ".md"), "_", " ")
	var b strings.Builder
	upper := true
	for _, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		switch {
		case isLetter && upper:
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
		case isLetter:
			b.WriteString(strings.ToLower(string(r)))
		default:
			b.WriteRune(r)
			upper = true
		}
	}
	return b.String()
}
