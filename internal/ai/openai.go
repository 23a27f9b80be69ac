package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cparmet/finite-news/internal/digest"
)

// Compile-time interface checks.
var (
	_ digest.Advisor  = (*OpenAIClient)(nil)
	_ digest.Embedder = (*OpenAIClient)(nil)
)

// OpenAIClient implements the advisory filter via chat completions and
// similarity scoring via the embeddings endpoint.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

// NewOpenAIClient creates an OpenAIClient with a 60-second timeout HTTP
// client.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}
}

// FlagRemovals asks the chat model which candidates should be removed per
// the instruction and returns the flagged lines.
func (c *OpenAIClient) FlagRemovals(ctx context.Context, instruction string, candidates []string) ([]string, error) {
	slog.Debug("calling OpenAI chat API", "model", c.model, "candidates", len(candidates))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: removalSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildRemovalPrompt(instruction, candidates)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai removal request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai removal request: empty response")
	}

	return ParseRemovalResponse(resp.Choices[0].Message.Content), nil
}

// EmbedBatch embeds texts in a single request, returning one vector per
// input in the same order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	slog.Debug("calling OpenAI embeddings API", "model", c.embeddingModel, "texts", len(texts))

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings request: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("openai embeddings request: vector index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
