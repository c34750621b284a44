// Package rag orchestrates a question's path through the system:
// guardrail check, context retrieval, prompt assembly, model generation
// (batch or streaming), and best-effort conversation persistence. It also
// owns index rebuilds and the coach-plan generation path.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vidasana/coach/internal/convo"
	"github.com/vidasana/coach/internal/document"
	"github.com/vidasana/coach/internal/guardrail"
	"github.com/vidasana/coach/internal/index"
	"github.com/vidasana/coach/internal/log"
)

// Per-call upper bounds for external I/O. A hung provider or store must
// never pin a request indefinitely.
const (
	retrieveTimeout = 15 * time.Second
	generateTimeout = 2 * time.Minute
	persistTimeout  = 5 * time.Second
	// rebuildTimeout covers embedding the whole knowledge base.
	rebuildTimeout = 10 * time.Minute
)

var (
	// ErrEmptyQuestion indicates the question was empty or whitespace.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrServiceUnavailable indicates the model provider kept failing
	// transiently until the retry budget was exhausted.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidRiskScore indicates a coach risk score outside [0, 1].
	ErrInvalidRiskScore = errors.New("risk score must be between 0 and 1")
)

// StreamFunc receives one answer fragment during streaming generation.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, fragment string) error

// Searcher is the vector index surface the orchestrator needs.
// *index.Manager satisfies it.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]index.Result, error)
	Rebuild(ctx context.Context, entries []index.Entry) error
	Ready() bool
}

// Memory is the conversation store surface the orchestrator needs.
// *convo.Store satisfies it. All calls are best-effort on the answer
// path: a failing store degrades to stateless operation.
type Memory interface {
	Append(ctx context.Context, conversationID, question, answer string, metadata map[string]any) error
	History(ctx context.Context, conversationID string, limit int) ([]convo.Message, error)
}

// Generator produces model output for a rendered prompt. When onChunk is
// non-nil the implementation streams fragments through it and still
// returns the accumulated text.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, onChunk StreamFunc) (string, error)
}

// Documents loads ingestable files under a knowledge root.
// *document.Loader satisfies it.
type Documents interface {
	List(ctx context.Context, root string) ([]document.Document, error)
	Load(path string) (document.Document, error)
	Supported(path string) bool
}

// Splitter divides extracted text into overlapping chunks.
// *chunker.Chunker satisfies it.
type Splitter interface {
	Split(text string) []string
}

// Config contains all required parameters for the Service.
type Config struct {
	Index     Searcher
	Memory    Memory // nil = stateless operation
	Generator Generator
	Documents Documents
	Splitter  Splitter
	Logger    log.Logger

	KnowledgeRoot         string
	TopK                  int
	HistoryLimit          int
	HighRiskThreshold     float64
	CriticalRiskThreshold float64

	// Resilience (zero values use defaults)
	Retry       RetryConfig
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Index == nil {
		return errors.New("index is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Documents == nil {
		return errors.New("document loader is required")
	}
	if cfg.Splitter == nil {
		return errors.New("splitter is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.KnowledgeRoot == "" {
		return errors.New("knowledge root is required")
	}
	return nil
}

// Service is the generation orchestrator. It is stateless per request
// and safe for concurrent use.
type Service struct {
	index     Searcher
	memory    Memory
	generator Generator
	documents Documents
	splitter  Splitter
	logger    log.Logger

	knowledgeRoot string
	topK          int
	historyLimit  int
	highRisk      float64
	criticalRisk  float64

	retry   RetryConfig
	limiter *rate.Limiter

	// turns serializes the user/assistant append pair per conversation
	// id so two racing requests never interleave their messages.
	turns *convo.KeyedMutex
}

// New creates a Service from cfg, applying defaults for zero values.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 10
	}
	highRisk := cfg.HighRiskThreshold
	if highRisk <= 0 {
		highRisk = 0.6
	}
	criticalRisk := cfg.CriticalRiskThreshold
	if criticalRisk <= 0 {
		criticalRisk = 0.8
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Service{
		index:         cfg.Index,
		memory:        cfg.Memory,
		generator:     cfg.Generator,
		documents:     cfg.Documents,
		splitter:      cfg.Splitter,
		logger:        cfg.Logger,
		knowledgeRoot: cfg.KnowledgeRoot,
		topK:          topK,
		historyLimit:  historyLimit,
		highRisk:      highRisk,
		criticalRisk:  criticalRisk,
		retry:         retry,
		limiter:       limiter,
		turns:         convo.NewKeyedMutex(),
	}, nil
}

// Ready reports whether the service can answer questions.
func (s *Service) Ready() bool {
	return s.index.Ready()
}

// Answer processes a question and returns the complete answer text.
func (s *Service) Answer(ctx context.Context, question, conversationID string) (string, error) {
	return s.answer(ctx, question, conversationID, nil)
}

// AnswerStream processes a question, delivering the answer incrementally
// through onChunk. The accumulated text is returned after the stream
// completes; the conversation turn is persisted only on confirmed
// completion, never for a cancelled or aborted stream.
func (s *Service) AnswerStream(ctx context.Context, question, conversationID string, onChunk StreamFunc) (string, error) {
	if onChunk == nil {
		return "", errors.New("nil stream callback")
	}
	return s.answer(ctx, question, conversationID, onChunk)
}

func (s *Service) answer(ctx context.Context, question, conversationID string, onChunk StreamFunc) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if conversationID == "" {
		conversationID = convo.DefaultConversationID
	}

	// Guardrail short-circuit: urgent symptoms get the fixed referral
	// response without touching the model. The turn is still recorded.
	if guardrail.ContainsUrgentKeywords(question) {
		s.logger.Warn("urgent keywords detected, short-circuiting",
			"conversation_id", conversationID)
		answer := guardrail.UrgentResponse
		if onChunk != nil {
			if err := onChunk(ctx, answer); err != nil {
				return "", fmt.Errorf("delivering urgent response: %w", err)
			}
		}
		s.persist(ctx, conversationID, question, answer, map[string]any{"guardrail": "urgent"})
		return answer, nil
	}

	retrieveCtx, cancel := context.WithTimeout(ctx, retrieveTimeout)
	results, err := s.index.Query(retrieveCtx, question, s.topK)
	cancel()
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	system := guardrail.SystemPrompt(s.highRisk, formatContext(results), s.history(ctx, conversationID))

	genCtx, genCancel := context.WithTimeout(ctx, generateTimeout)
	defer genCancel()
	answer, err := s.generate(genCtx, system, question, onChunk)
	if err != nil {
		return "", err
	}

	s.persist(ctx, conversationID, question, answer, nil)
	return answer, nil
}

// history returns the formatted conversation window, degrading to the
// no-history marker when memory is absent or failing.
func (s *Service) history(ctx context.Context, conversationID string) string {
	if s.memory == nil {
		return noHistoryMessage
	}
	msgs, err := s.memory.History(ctx, conversationID, s.historyLimit)
	if err != nil {
		if errors.Is(err, convo.ErrUnavailable) {
			s.logger.Debug("conversation store unavailable, answering stateless")
		} else {
			s.logger.Warn("reading conversation history", "error", err)
		}
		return noHistoryMessage
	}
	return formatHistory(msgs)
}

// persist records the completed turn. Best-effort: failures are logged,
// never surfaced to the caller. Uses a detached context so a client
// disconnect after completion does not lose the turn.
func (s *Service) persist(ctx context.Context, conversationID, question, answer string, metadata map[string]any) {
	if s.memory == nil {
		return
	}

	s.turns.Lock(conversationID)
	defer s.turns.Unlock(conversationID)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.memory.Append(pctx, conversationID, question, answer, metadata); err != nil {
		if errors.Is(err, convo.ErrUnavailable) {
			s.logger.Debug("conversation store unavailable, turn not persisted",
				"conversation_id", conversationID)
			return
		}
		s.logger.Warn("persisting conversation turn",
			"conversation_id", conversationID, "error", err)
	}
}
