// Package index provides the vector index over knowledge base chunks:
// an embedded chromem-go store with file persistence, similarity
// queries and an atomic-swap lifecycle manager.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "knowledge"

// ErrNotLoaded indicates no index is available yet (neither built nor
// loaded from disk).
var ErrNotLoaded = errors.New("vector index not loaded")

// Entry is one indexed chunk.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Result is an Entry returned from a similarity query.
type Result struct {
	Entry
	Similarity float32
}

// EntryID derives a stable chunk identifier from its source and content.
// Rebuilding an unchanged knowledge base yields identical IDs.
func EntryID(source string, seq int, content string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", source, seq, content)))
	return hex.EncodeToString(h[:])
}

// Index is an embedded vector store over knowledge chunks.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// New creates an empty in-memory Index.
func New(embedFunc chromem.EmbeddingFunc) (*Index, error) {
	db := chromem.NewDB()

	col, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{
		db:         db,
		collection: col,
		embedFunc:  embedFunc,
	}, nil
}

// Open loads an Index previously written with Persist.
func Open(path string, embedFunc chromem.EmbeddingFunc) (*Index, error) {
	db := chromem.NewDB()
	if err := db.ImportFromFile(path, ""); err != nil {
		return nil, fmt.Errorf("import index from %s: %w", path, err)
	}

	col := db.GetCollection(collectionName, embedFunc)
	if col == nil {
		return nil, fmt.Errorf("collection %q not found in %s", collectionName, path)
	}

	return &Index{
		db:         db,
		collection: col,
		embedFunc:  embedFunc,
	}, nil
}

// Add embeds and stores the given entries.
//
// The index is built in memory and only persisted on success, so a
// failed Add never leaves a partial index on disk.
func (ix *Index) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:       e.ID,
			Content:  e.Content,
			Metadata: e.Metadata,
		}
	}

	if err := ix.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding %d entries: %w", len(entries), err)
	}
	return nil
}

// Query returns the k entries most similar to text, best match first.
// An empty index yields an empty result, not an error.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("query k must be positive, got %d", k)
	}

	// chromem-go requires nResults <= collection size.
	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := ix.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}

	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = Result{
			Entry: Entry{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Count returns the number of indexed entries.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Persist writes the index to path atomically: the snapshot is written
// to a temp file in the same directory and renamed into place, so
// readers of path always see either the old or the new index, never a
// partial write.
func (ix *Index) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := ix.db.ExportToFile(tmp, true, ""); err != nil {
		return fmt.Errorf("exporting index: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("installing index snapshot: %w", err)
	}
	return nil
}
