// Package api exposes the coaching service over HTTP.
//
// Endpoints:
//
//	GET    /health                     liveness probe
//	GET    /ready                      readiness probe (index + memory state)
//	POST   /api/ask                    answer a question (JSON)
//	POST   /api/ask/stream             answer a question (SSE streaming)
//	POST   /api/coach                  generate a two-week coaching plan
//	POST   /api/reload                 rebuild the vector index from disk
//	POST   /api/documents/upload       add a document to the knowledge base
//	GET    /api/documents/list         list knowledge base documents
//	DELETE /api/conversations/{id}     delete a conversation's history
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: liveness and readiness probes
//   - ask.go: question answering, batch and SSE
//   - coach.go: coaching plan generation
//   - admin.go: index reload and conversation deletion
//   - documents.go: knowledge base upload and listing
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vidasana/coach/internal/log"
	"github.com/vidasana/coach/internal/rag"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Sized to cover a full streamed generation plus retries.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Coach is the orchestrator surface the API consumes.
// *rag.Service satisfies it.
type Coach interface {
	Answer(ctx context.Context, question, conversationID string) (string, error)
	AnswerStream(ctx context.Context, question, conversationID string, onChunk rag.StreamFunc) (string, error)
	GeneratePlan(ctx context.Context, profile rag.UserProfile, riskScore float64, topDrivers []string) (*rag.Plan, error)
	Reload(ctx context.Context) (int, error)
	ListDocuments(ctx context.Context) ([]rag.DocumentInfo, error)
	UploadDocument(ctx context.Context, filename string, data []byte, reload bool) (rag.UploadResult, error)
	Ready() bool
}

// Conversations is the conversation-store surface the API consumes.
// *convo.Store satisfies it.
type Conversations interface {
	Clear(ctx context.Context, conversationID string) (int64, error)
	Available() bool
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the coaching REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(coach Coach, conversations Conversations, logger log.Logger) *Server {
	mux := http.NewServeMux()

	health := &HealthHandler{coach: coach, conversations: conversations, logger: logger}
	ask := &AskHandler{coach: coach, logger: logger}
	coachH := &CoachHandler{coach: coach, logger: logger}
	admin := &AdminHandler{coach: coach, conversations: conversations, logger: logger}
	docs := &DocumentsHandler{coach: coach, logger: logger}

	mux.HandleFunc("GET /health", health.liveness)
	mux.HandleFunc("GET /ready", health.readiness)
	mux.HandleFunc("POST /api/ask", ask.ask)
	mux.HandleFunc("POST /api/ask/stream", ask.stream)
	mux.HandleFunc("POST /api/coach", coachH.plan)
	mux.HandleFunc("POST /api/reload", admin.reload)
	mux.HandleFunc("POST /api/documents/upload", docs.upload)
	mux.HandleFunc("GET /api/documents/list", docs.list)
	mux.HandleFunc("DELETE /api/conversations/{id}", admin.deleteConversation)

	return &Server{mux: mux, logger: logger}
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
