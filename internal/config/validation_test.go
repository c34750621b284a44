package config

import (
	"errors"
	"testing"
)

// validConfig returns a configuration that passes Validate().
func validConfig() *Config {
	return &Config{
		ServerHost:            "0.0.0.0",
		ServerPort:            8000,
		Provider:              ProviderGemini,
		ModelName:             "gemini-2.5-flash",
		Temperature:           0.7,
		MaxTokens:             2048,
		KnowledgeDir:          "./knowledge_base",
		IndexDir:              "./vector_index",
		ChunkSize:             1000,
		ChunkOverlap:          200,
		EmbedderModel:         DefaultGeminiEmbedderModel,
		TopK:                  3,
		HistoryLimit:          10,
		HighRiskThreshold:     0.6,
		CriticalRiskThreshold: 0.8,
		PostgresHost:          "localhost",
		PostgresPort:          5432,
		PostgresUser:          "vidasana",
		PostgresPassword:      "test-password-ok",
		PostgresDBName:        "vidasana",
		PostgresSSLMode:       "disable",
	}
}

func TestValidate_OK(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() failed on valid config: %v", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("expected ErrConfigNil, got %v", err)
	}
}

func TestValidate_MissingGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	err := validConfig().Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestValidate_OllamaNeedsNoKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validConfig()
	cfg.Provider = ProviderOllama
	cfg.OllamaHost = "http://localhost:11434"

	if err := cfg.Validate(); err != nil {
		t.Errorf("ollama provider should not require GEMINI_API_KEY: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }, ErrInvalidProvider},
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, ErrInvalidTemperature},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, ErrInvalidTemperature},
		{"max tokens zero", func(c *Config) { c.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"empty embedder", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"empty knowledge dir", func(c *Config) { c.KnowledgeDir = "" }, ErrInvalidKnowledgeDir},
		{"empty index dir", func(c *Config) { c.IndexDir = "" }, ErrInvalidIndexDir},
		{"chunk size zero", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"overlap exceeds size", func(c *Config) { c.ChunkOverlap = c.ChunkSize + 1 }, ErrInvalidChunking},
		{"top-k zero", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
		{"top-k too large", func(c *Config) { c.TopK = 51 }, ErrInvalidTopK},
		{"history limit zero", func(c *Config) { c.HistoryLimit = 0 }, ErrInvalidHistoryLimit},
		{"history limit too large", func(c *Config) { c.HistoryLimit = MaxAllowedHistoryLimit + 1 }, ErrInvalidHistoryLimit},
		{"high threshold zero", func(c *Config) { c.HighRiskThreshold = 0 }, ErrInvalidRiskThreshold},
		{"critical threshold above one", func(c *Config) { c.CriticalRiskThreshold = 1.1 }, ErrInvalidRiskThreshold},
		{"thresholds unordered", func(c *Config) { c.HighRiskThreshold = 0.9; c.CriticalRiskThreshold = 0.8 }, ErrInvalidRiskThreshold},
		{"server port zero", func(c *Config) { c.ServerPort = 0 }, ErrInvalidServerPort},
		{"server port too large", func(c *Config) { c.ServerPort = 70000 }, ErrInvalidServerPort},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"postgres port out of range", func(c *Config) { c.PostgresPort = 0 }, ErrInvalidPostgresPort},
		{"empty postgres db", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"bad ssl mode", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "test-key")

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeHistoryLimit(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"zero uses default", 0, DefaultHistoryLimit},
		{"negative uses default", -5, DefaultHistoryLimit},
		{"in range unchanged", 25, 25},
		{"clamped to max", MaxAllowedHistoryLimit + 100, MaxAllowedHistoryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeHistoryLimit(tt.input); got != tt.want {
				t.Errorf("NormalizeHistoryLimit(%d) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
