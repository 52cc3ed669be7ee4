package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quarry-search/quarry/internal/models"
	"github.com/quarry-search/quarry/internal/types"
)

// Engine answers free-text queries against the index populated at ingestion
// time. Queries are independent and read-only; an Engine is safe for
// concurrent use when its collaborators are.
type Engine struct {
	embedder types.Embedder
	store    types.IndexStore
	limit    int
	logger   *zap.Logger
}

func New(embedder types.Embedder, store types.IndexStore, limit int, logger *zap.Logger) *Engine {
	if limit <= 0 {
		limit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{embedder: embedder, store: store, limit: limit, logger: logger}
}

// Query embeds text and runs the hybrid lexical+vector retrieval, returning
// ranked parent metadata. A failed query embedding aborts the query — there
// is no lexical-only fallback, which would silently skew rankings.
func (e *Engine) Query(ctx context.Context, text string) ([]models.ParentHit, error) {
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	hits, err := e.store.HybridSearch(ctx, text, vector, e.limit)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("query answered",
		zap.String("query", text),
		zap.Int("hits", len(hits)))
	return hits, nil
}
