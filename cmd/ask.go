package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vidasana/coach/internal/app"
)

var askConversationID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question from the terminal",
	Long: `Answer one question against the knowledge base and print the
response. The answer is streamed to stdout as it is generated. Use
--conversation to continue a stored conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askConversationID, "conversation", "", "conversation id for follow-up context")
	rootCmd.AddCommand(askCmd)
}

func runAsk(parent context.Context, question string) error {
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

	if err := a.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("preparing vector index: %w", err)
	}

	_, err = a.RAG.AnswerStream(ctx, question, askConversationID,
		func(_ context.Context, fragment string) error {
			_, writeErr := fmt.Fprint(os.Stdout, fragment)
			return writeErr
		})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}
	fmt.Println()
	return nil
}
