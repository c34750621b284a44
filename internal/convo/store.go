// Package convo persists conversation history in PostgreSQL.
//
// The store is best-effort by design: when the database is unreachable
// the coaching pipeline degrades to stateless answers instead of
// failing requests. Callers decide how to react to ErrUnavailable.
package convo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidasana/coach/internal/log"
)

// ErrUnavailable indicates the conversation store has no working
// database connection.
var ErrUnavailable = errors.New("conversation store unavailable")

// Message roles. The assistant role covers both batch and streamed answers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultConversationID is used when a request carries no conversation id.
const DefaultConversationID = "default"

// Message is one persisted conversation turn.
type Message struct {
	ID             uuid.UUID
	ConversationID string
	Role           string
	Content        string
	SequenceNumber int
	CreatedAt      time.Time
	// Metadata carries free-form attributes of the message, such as
	// guardrail markers on the assistant side.
	Metadata map[string]any
}

// Store manages conversation persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines. A nil pool
// puts the store in permanent degraded mode: every method returns
// ErrUnavailable without touching the network.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a Store. pool may be nil for degraded (stateless) mode.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Available reports whether the store has a database connection.
func (s *Store) Available() bool {
	return s.pool != nil
}

// Append stores a user/assistant exchange at the tail of the conversation.
// metadata describes the answer (model, guardrail markers) and is stored
// on the assistant message; it may be nil.
//
// Both messages commit atomically: a transaction takes a per-conversation
// advisory lock so concurrent appends to the same conversation cannot
// interleave sequence numbers, while different conversations proceed in
// parallel.
func (s *Store) Append(ctx context.Context, conversationID, question, answer string, metadata map[string]any) error {
	if s.pool == nil {
		return ErrUnavailable
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	// Serialize appends per conversation without blocking other
	// conversations. The lock is released at commit/rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, conversationID); err != nil {
		return fmt.Errorf("locking conversation %s: %w", conversationID, err)
	}

	var maxSeq int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM conversation_messages WHERE conversation_id = $1`,
		conversationID,
	).Scan(&maxSeq); err != nil {
		return fmt.Errorf("reading sequence for %s: %w", conversationID, err)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	const insert = `INSERT INTO conversation_messages (conversation_id, role, content, sequence_number, metadata)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, insert, conversationID, RoleUser, question, maxSeq+1, map[string]any{}); err != nil {
		return fmt.Errorf("inserting user message: %w", err)
	}
	if _, err := tx.Exec(ctx, insert, conversationID, RoleAssistant, answer, maxSeq+2, metadata); err != nil {
		return fmt.Errorf("inserting assistant message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing exchange: %w", err)
	}

	s.logger.Debug("appended exchange", "conversation_id", conversationID, "sequence", maxSeq+2)
	return nil
}

// History returns the most recent limit messages of a conversation in
// chronological order (oldest of the window first).
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if s.pool == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		return nil, nil
	}

	// Select the newest window, then flip it back to chronological order.
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, sequence_number, created_at, metadata
		FROM (
			SELECT id, conversation_id, role, content, sequence_number, created_at, metadata
			FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY sequence_number DESC
			LIMIT $2
		) recent
		ORDER BY sequence_number ASC`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.SequenceNumber, &m.CreatedAt, &m.Metadata); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", conversationID, err)
	}

	return messages, nil
}

// Clear deletes all messages of a conversation and returns how many
// were removed.
func (s *Store) Clear(ctx context.Context, conversationID string) (int64, error) {
	if s.pool == nil {
		return 0, ErrUnavailable
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM conversation_messages WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return 0, fmt.Errorf("clearing conversation %s: %w", conversationID, err)
	}

	deleted := tag.RowsAffected()
	s.logger.Debug("cleared conversation", "conversation_id", conversationID, "deleted", deleted)
	return deleted, nil
}

// Ping verifies database connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return ErrUnavailable
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
