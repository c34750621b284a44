package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vidasana/coach/internal/convo"
	"github.com/vidasana/coach/internal/index"
	"github.com/vidasana/coach/internal/log"
	"github.com/vidasana/coach/internal/rag"
)

// maxRequestBody bounds request bodies on all JSON endpoints.
const maxRequestBody = 1 << 20 // 1MB

// AskHandler serves question answering, batch and streaming.
type AskHandler struct {
	coach  Coach
	logger log.Logger
}

// askRequest is the body of POST /api/ask and /api/ask/stream.
type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// askResponse is the body of POST /api/ask.
type askResponse struct {
	Answer         string `json:"answer"`
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
}

// ask handles POST /api/ask.
func (h *AskHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	answer, err := h.coach.Answer(r.Context(), req.Question, req.ConversationID)
	if err != nil {
		status, code := answerErrorStatus(err)
		h.logger.Error("answering question", "error", err)
		writeError(w, status, code, "could not answer the question")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = convo.DefaultConversationID
	}
	writeJSON(w, http.StatusOK, askResponse{
		Answer:         answer,
		Question:       req.Question,
		ConversationID: conversationID,
	})
}

// SSE event types for streaming answers.
const (
	EventChunk = "chunk" // partial answer text
	EventDone  = "done"  // stream completed successfully
	EventError = "error" // stream failed
)

// ChunkPayload is the SSE data payload for streaming text fragments.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when streaming completes.
type DonePayload struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// ErrorPayload is the SSE data payload when streaming fails.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles POST /api/ask/stream with Server-Sent Events.
// Fragments are delivered as `chunk` events; a terminal `done` event
// carries the full answer. Client disconnects abort generation and the
// partial answer is not persisted.
func (h *AskHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "invalid_request",
			Message: "invalid request body",
		})
		return
	}

	ctx := r.Context()
	answer, err := h.coach.AnswerStream(ctx, req.Question, req.ConversationID,
		func(_ context.Context, fragment string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeEvent(w, flusher, EventChunk, ChunkPayload{Text: fragment})
		})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected mid-stream",
				"conversation_id", req.ConversationID)
			return
		}
		_, code := answerErrorStatus(err)
		h.logger.Error("streaming answer", "error", err)
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    code,
			Message: "could not answer the question",
		})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = convo.DefaultConversationID
	}
	_ = writeEvent(w, flusher, EventDone, DonePayload{
		Answer:         answer,
		ConversationID: conversationID,
	})
}

// answerErrorStatus maps orchestrator errors to an HTTP status and a
// stable machine-readable code.
func answerErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		return http.StatusBadRequest, "empty_question"
	case errors.Is(err, index.ErrNotLoaded):
		return http.StatusServiceUnavailable, "index_not_ready"
	case errors.Is(err, rag.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "generation_failed"
	}
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n".
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
