package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
)

// EmbedderConfig represents the configuration for the text embedder.
type EmbedderConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Embedder maps text to a fixed-dimension vector via the embedding service.
type Embedder struct {
	config   EmbedderConfig
	embedder *embeddings.EmbedderImpl
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-ada-002"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	client, err := newOpenAIClient("", config.APIKey, config.BaseURL, config.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{config: config, embedder: emb}, nil
}

// Embed returns the embedding vector for text. Unlike summaries, embedding
// failures propagate: an unembedded chunk must never be written to the index
// and an unembedded query must never degrade to lexical-only ranking.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return vec, nil
}
