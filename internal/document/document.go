// Package document loads knowledge base files from disk and extracts
// their plain-text content for indexing.
//
// Supported formats:
//   - .txt, .md: read as-is (UTF-8 text)
//   - .svg: structured text extraction (see svg.go)
//   - anything else decodable as UTF-8 is read as plain text
//
// Files in unsupported formats or that fail to parse are skipped during
// directory listing; a single bad file never aborts an index build.
package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/vidasana/coach/internal/log"
)

var (
	// ErrUnsupportedFormat indicates the file extension has no registered
	// extractor and the content is not decodable as plain text.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrParse indicates the file matched a supported format but its
	// content could not be extracted.
	ErrParse = errors.New("document parse failed")
)

// Document is one knowledge base file with its extracted text content.
type Document struct {
	// Path is the absolute path the document was loaded from.
	Path string
	// Name is the base file name, used as the source label in prompts
	// and citations.
	Name string
	// Content is the extracted plain text.
	Content string
	// Metadata carries source attributes stored alongside index entries.
	Metadata map[string]string
}

// Extractor converts raw file bytes into plain text.
type Extractor interface {
	// Extract returns the plain-text content of data.
	// Returns an error wrapping ErrParse when the content is malformed.
	Extract(data []byte) (string, error)
}

// Loader reads documents from a knowledge base directory.
type Loader struct {
	logger     log.Logger
	extractors map[string]Extractor // keyed by lowercase extension, e.g. ".txt"
}

// NewLoader creates a Loader with the default extractor set.
func NewLoader(logger log.Logger) *Loader {
	return &Loader{
		logger: logger,
		extractors: map[string]Extractor{
			".txt": plainText{},
			".md":  plainText{},
			".svg": svgText{},
		},
	}
}

// Supported reports whether files with the given path's extension can be loaded.
func (l *Loader) Supported(path string) bool {
	_, ok := l.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads and extracts a single document.
//
// Files with an unknown extension are still loaded when their bytes
// decode as UTF-8 text; only binary content fails with
// ErrUnsupportedFormat.
func (l *Loader) Load(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var content string
	if extractor, ok := l.extractors[ext]; ok {
		content, err = extractor.Extract(data)
		if err != nil {
			return Document{}, fmt.Errorf("extracting %s: %w", path, err)
		}
	} else {
		if !utf8.Valid(data) {
			return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
		}
		content = string(data)
	}

	name := filepath.Base(path)
	return Document{
		Path:    path,
		Name:    name,
		Content: content,
		Metadata: map[string]string{
			"source": name,
			"format": strings.TrimPrefix(ext, "."),
		},
	}, nil
}

// List walks root and loads every supported document.
//
// Unsupported and unreadable files are logged and skipped so one bad
// file never aborts the walk. Returns an error only when the root
// itself cannot be traversed.
func (l *Loader) List(ctx context.Context, root string) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		if !l.Supported(path) {
			l.logger.Debug("skipping unsupported file", "path", path)
			return nil
		}

		doc, err := l.Load(path)
		if err != nil {
			// Skip and continue: a malformed document must not block
			// the rest of the knowledge base.
			l.logger.Warn("skipping document", "path", path, "error", err)
			return nil
		}

		if strings.TrimSpace(doc.Content) == "" {
			l.logger.Warn("skipping empty document", "path", path)
			return nil
		}

		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return docs, nil
}

// plainText reads text files as-is.
type plainText struct{}

func (plainText) Extract(data []byte) (string, error) {
	return string(data), nil
}
