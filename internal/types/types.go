package types

import (
	"context"

	"github.com/quarry-search/quarry/internal/models"
)

// Summarizer produces best-effort document summaries. Implementations must
// return an empty string on failure rather than an error: summarization is
// context for embeddings, not a required step, and the signature keeps
// callers from treating it as one.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Embedder maps text to a vector of fixed, model-determined dimensionality.
// Failures propagate; callers decide whether the step was required.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits document text into an ordered sequence of non-empty chunks.
// Empty input yields an empty sequence, not an error.
type Chunker interface {
	Chunk(text string) []models.Chunk
}

// IndexStore is the index service consumed by the writer and the query
// engine. Implementations must be safe for concurrent use.
type IndexStore interface {
	// EnsureIndex idempotently creates the index with the parent/child
	// schema. It fails when an existing index is incompatible.
	EnsureIndex(ctx context.Context) error
	// WriteDocument submits one parent record plus its chunk records as a
	// single bulk operation, minting any unassigned ids, and reports the
	// outcome per entry.
	WriteDocument(ctx context.Context, parent *models.DocumentRecord, chunks []models.ChunkRecord) (*models.WriteResult, error)
	// HybridSearch runs the combined lexical+vector query over chunk
	// records and returns ranked parent metadata.
	HybridSearch(ctx context.Context, query string, vector []float32, limit int) ([]models.ParentHit, error)
}
