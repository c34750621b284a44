package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vidasana/coach/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("coach %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration: unavailable (%v)\n", err)
		return nil
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.FullModelName())
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  Temperature: %.2f\n", cfg.Temperature)
	fmt.Printf("  Max tokens: %d\n", cfg.MaxTokens)
	fmt.Printf("  Knowledge dir: %s\n", cfg.KnowledgeDir)
	fmt.Printf("  Index dir: %s\n", cfg.IndexDir)
	fmt.Printf("  Server: %s\n", cfg.ServerAddr())

	printKeyStatus(cfg.Provider)
	return nil
}

// printKeyStatus reports whether the provider's API key is present
// without printing the full value.
func printKeyStatus(provider string) {
	var envVar string
	switch provider {
	case config.ProviderOpenAI:
		envVar = "OPENAI_API_KEY"
	case config.ProviderOllama:
		return // local provider, no key
	default:
		envVar = "GEMINI_API_KEY"
	}

	key := os.Getenv(envVar)
	if key == "" {
		fmt.Printf("  %s: not set\n", envVar)
		return
	}
	if len(key) > 8 {
		fmt.Printf("  %s: %s...%s (configured)\n", envVar, key[:4], key[len(key)-4:])
	} else {
		fmt.Printf("  %s: configured\n", envVar)
	}
}
