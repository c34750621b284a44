// Package app wires the application together: configuration, genkit
// provider, vector index, conversation store, and the orchestrator.
// Commands obtain a fully constructed App from Setup and release its
// resources with Close.
package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidasana/coach/internal/config"
	"github.com/vidasana/coach/internal/convo"
	"github.com/vidasana/coach/internal/index"
	"github.com/vidasana/coach/internal/log"
	"github.com/vidasana/coach/internal/rag"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool // nil when the store is unreachable (degraded mode)
	Store    *convo.Store
	Index    *index.Manager
	RAG      *rag.Service

	otelCleanup func()
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Debug("database pool closed")
		}
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// EnsureIndex makes the vector index queryable: it loads the persisted
// snapshot when one exists, otherwise builds the index from the
// knowledge root.
func (a *App) EnsureIndex(ctx context.Context) error {
	if a.Index.Exists() {
		if err := a.Index.Load(ctx); err == nil {
			return nil
		} else {
			a.Logger.Warn("loading persisted index failed, rebuilding", "error", err)
		}
	}

	count, err := a.RAG.Reload(ctx)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	a.Logger.Info("vector index built", "chunks", count)
	return nil
}
