package rag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidDocument indicates an uploaded file that cannot join the
// knowledge base: bad name, unsupported format, or no extractable text.
var ErrInvalidDocument = errors.New("invalid document")

// DocumentInfo describes one knowledge base file on disk.
type DocumentInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// UploadResult reports where an uploaded document landed and whether
// the index was rebuilt to include it.
type UploadResult struct {
	Path     string
	Reloaded bool
	Chunks   int
}

// ListDocuments returns every supported file under the knowledge root.
// Unsupported files are silently omitted; a missing root yields an
// empty list.
func (s *Service) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	var infos []DocumentInfo

	err := filepath.WalkDir(s.knowledgeRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !s.documents.Supported(path) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		infos = append(infos, DocumentInfo{
			Name: d.Name(),
			Path: path,
			Size: fi.Size(),
			Type: strings.ToLower(filepath.Ext(path)),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("walking %s: %w", s.knowledgeRoot, err)
	}

	return infos, nil
}

// UploadDocument stores data as a new knowledge base file. The file is
// verified to yield extractable text and removed again when it does not.
// With reload set, the index is rebuilt so the document is immediately
// queryable; a failed rebuild keeps the file and the previous index.
func (s *Service) UploadDocument(ctx context.Context, filename string, data []byte, reload bool) (UploadResult, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return UploadResult{}, fmt.Errorf("%w: missing file name", ErrInvalidDocument)
	}
	if !s.documents.Supported(name) {
		return UploadResult{}, fmt.Errorf("%w: unsupported format %s", ErrInvalidDocument, filepath.Ext(name))
	}

	if err := os.MkdirAll(s.knowledgeRoot, 0o750); err != nil {
		return UploadResult{}, fmt.Errorf("creating knowledge root: %w", err)
	}

	path := filepath.Join(s.knowledgeRoot, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return UploadResult{}, fmt.Errorf("writing %s: %w", path, err)
	}

	// Verify before committing to the knowledge base: a document that
	// cannot be extracted would be silently skipped on every rebuild.
	doc, err := s.documents.Load(path)
	if err != nil {
		s.removeRejected(path)
		return UploadResult{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if strings.TrimSpace(doc.Content) == "" {
		s.removeRejected(path)
		return UploadResult{}, fmt.Errorf("%w: no extractable text", ErrInvalidDocument)
	}

	s.logger.Info("document uploaded", "path", path, "bytes", len(data))

	result := UploadResult{Path: path}
	if reload {
		chunks, err := s.Reload(ctx)
		if err != nil {
			// The file stays; it will be picked up by the next reload.
			s.logger.Warn("index rebuild after upload failed", "error", err)
			return result, nil
		}
		result.Reloaded = true
		result.Chunks = chunks
	}
	return result, nil
}

func (s *Service) removeRejected(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warn("removing rejected upload", "path", path, "error", err)
	}
}
