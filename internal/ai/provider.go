// Package ai provides the scoring-service clients behind the engine's
// semantic deduplication and advisory filter stages: an OpenAI client for
// embeddings and chat, and an Anthropic client for chat.
package ai

import (
	"fmt"

	"github.com/cparmet/finite-news/internal/digest"
)

// Config holds the settings for constructing scoring clients.
type Config struct {
	Provider       string // "openai" or "anthropic"
	APIKey         string
	Model          string
	EmbeddingModel string

	// BaseURL overrides the provider endpoint. Tests point it at a local
	// server.
	BaseURL string
}

// NewScoring creates the advisor and embedder for the configured provider.
// Anthropic has no embeddings endpoint, so with that provider the returned
// embedder is nil and semantic deduplication falls back to exact matching.
func NewScoring(cfg Config) (digest.Advisor, digest.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		client := NewOpenAIClient(cfg)
		return client, client, nil
	case "anthropic":
		return NewAnthropicClient(cfg), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
