package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/vidasana/coach/internal/log"
	"github.com/vidasana/coach/internal/rag"
)

// maxUploadBytes bounds a single document upload.
const maxUploadBytes = 10 << 20 // 10 MB

// DocumentsHandler serves knowledge base management: upload and listing.
type DocumentsHandler struct {
	coach  Coach
	logger log.Logger
}

// uploadResponse is the body of POST /api/documents/upload.
type uploadResponse struct {
	Path     string `json:"path"`
	Reloaded bool   `json:"reloaded"`
	Chunks   int    `json:"chunks"`
}

// upload handles POST /api/documents/upload: stores a multipart file in
// the knowledge root and, unless reload=false, rebuilds the index so the
// document is immediately queryable.
func (h *DocumentsHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("reading upload", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_upload", "could not read the uploaded file")
		return
	}

	reload := r.URL.Query().Get("reload") != "false"

	result, err := h.coach.UploadDocument(r.Context(), header.Filename, data, reload)
	if err != nil {
		if errors.Is(err, rag.ErrInvalidDocument) {
			writeError(w, http.StatusBadRequest, "invalid_document", err.Error())
			return
		}
		h.logger.Error("storing uploaded document", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "upload_failed", "could not store the document")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Path:     result.Path,
		Reloaded: result.Reloaded,
		Chunks:   result.Chunks,
	})
}

// listResponse is the body of GET /api/documents/list.
type listResponse struct {
	Documents []rag.DocumentInfo `json:"documents"`
	Count     int                `json:"count"`
}

// list handles GET /api/documents/list.
func (h *DocumentsHandler) list(w http.ResponseWriter, r *http.Request) {
	infos, err := h.coach.ListDocuments(r.Context())
	if err != nil {
		h.logger.Error("listing documents", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list documents")
		return
	}
	if infos == nil {
		infos = []rag.DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, listResponse{Documents: infos, Count: len(infos)})
}
