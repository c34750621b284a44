package api

import (
	"net/http"

	"github.com/vidasana/coach/internal/log"
)

// AdminHandler serves index reload and conversation deletion.
type AdminHandler struct {
	coach         Coach
	conversations Conversations
	logger        log.Logger
}

// reloadResponse is the body of POST /api/reload.
type reloadResponse struct {
	Reloaded bool `json:"reloaded"`
	Chunks   int  `json:"chunks"`
}

// reload handles POST /api/reload: rebuilds the vector index from the
// knowledge root. Queries keep hitting the previous index until the
// rebuild completes.
func (h *AdminHandler) reload(w http.ResponseWriter, r *http.Request) {
	count, err := h.coach.Reload(r.Context())
	if err != nil {
		h.logger.Error("reloading knowledge base", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", "could not rebuild the index")
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Reloaded: true, Chunks: count})
}

// deleteResponse is the body of DELETE /api/conversations/{id}.
type deleteResponse struct {
	ConversationID string `json:"conversation_id"`
	Deleted        int64  `json:"deleted"`
}

// deleteConversation handles DELETE /api/conversations/{id}.
func (h *AdminHandler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "conversation id is required")
		return
	}

	if h.conversations == nil || !h.conversations.Available() {
		writeError(w, http.StatusServiceUnavailable, "memory_unavailable", "conversation memory is disabled")
		return
	}

	deleted, err := h.conversations.Clear(r.Context(), id)
	if err != nil {
		h.logger.Error("deleting conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "could not delete the conversation")
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ConversationID: id, Deleted: deleted})
}
