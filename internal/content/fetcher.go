package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fetcher supplies the full corpus snapshot the index is built from. The
// engine never pages, streams or diffs it.
type Fetcher interface {
	FetchCorpus(ctx context.Context) ([]Document, error)
}

// Writer persists documents. *PostgresStore and *SQLiteStore implement it.
type Writer interface {
	Put(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, ids ...string) error
}

var (
	_ Writer = (*PostgresStore)(nil)
	_ Writer = (*SQLiteStore)(nil)
)

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]Document, error)

func (f FetcherFunc) FetchCorpus(ctx context.Context) ([]Document, error) {
	return f(ctx)
}

// StaticFetcher serves a fixed in-memory corpus.
type StaticFetcher struct {
	docs []Document
}

func NewStaticFetcher(docs []Document) *StaticFetcher {
	return &StaticFetcher{docs: docs}
}

func (f *StaticFetcher) FetchCorpus(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

// FileFetcher re-reads a JSON or YAML corpus file on every fetch, so editing
// the file and triggering a rebuild picks up the change.
type FileFetcher struct {
	path string
}

func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

func (f *FileFetcher) FetchCorpus(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(f.path)
}

// LoadFile decodes a corpus from a .json, .yaml or .yml file holding a list
// of documents.
func LoadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	var docs []Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &docs)
	default:
		err = json.Unmarshal(data, &docs)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}
	return docs, nil
}
