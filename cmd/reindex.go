package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vidasana/coach/internal/app"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from the knowledge directory",
	Long: `Read every document under the knowledge directory, split it into
chunks, embed them, and atomically replace the persisted vector index.
The previous index keeps serving until the rebuild succeeds.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReindex(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(parent context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	count, err := a.RAG.Reload(ctx)
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	fmt.Printf("Indexed %d chunks from %s\n", count, cfg.KnowledgeDir)
	return nil
}
