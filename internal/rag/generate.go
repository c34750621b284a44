package rag

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GenkitModel adapts a genkit instance to the Generator interface.
type GenkitModel struct {
	g         *genkit.Genkit
	modelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
}

// NewGenkitModel creates a Generator backed by genkit.Generate.
func NewGenkitModel(g *genkit.Genkit, modelName string) *GenkitModel {
	return &GenkitModel{g: g, modelName: modelName}
}

// Generate implements Generator. An empty system prompt is omitted so
// coach-plan calls can carry the whole instruction in the user prompt.
func (m *GenkitModel) Generate(ctx context.Context, system, prompt string, onChunk StreamFunc) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithPrompt(prompt),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}
	if m.modelName != "" {
		opts = append(opts, ai.WithModelName(m.modelName))
	}
	if onChunk != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return onChunk(ctx, chunk.Text())
		}))
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
