package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quarry-search/quarry/internal/models"
	"github.com/quarry-search/quarry/internal/types"
)

type Config struct {
	Workers          int // concurrent document pipelines
	EmbedConcurrency int // concurrent chunk embeddings within one document
}

// Pipeline runs the per-document ingestion sequence: chunk → summarize →
// embed each chunk with the summary as shared context → one bulk write.
// Documents are independent of each other; the only shared state is the
// external clients, which must be safe for concurrent use.
type Pipeline struct {
	config     Config
	chunker    types.Chunker
	summarizer types.Summarizer
	embedder   types.Embedder
	store      types.IndexStore
	logger     *zap.Logger
}

func NewWithConfig(config Config, chunker types.Chunker, summarizer types.Summarizer, embedder types.Embedder, store types.IndexStore, logger *zap.Logger) *Pipeline {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.EmbedConcurrency <= 0 {
		config.EmbedConcurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:     config,
		chunker:    chunker,
		summarizer: summarizer,
		embedder:   embedder,
		store:      store,
		logger:     logger,
	}
}

// Result describes the outcome of one document's ingestion.
type Result struct {
	Path          string
	DocID         string
	Chunks        int
	ChunksWritten int
	Skipped       bool
	Err           error
}

// IngestDocument runs the full pipeline for one document. The bulk write is
// the synchronization barrier: every chunk embedding completes or fails
// before anything is submitted, and a context cancelled before the write
// discards the document's work entirely rather than writing it partially.
func (p *Pipeline) IngestDocument(ctx context.Context, doc models.Document) Result {
	res := Result{Path: doc.Path}

	chunks := p.chunker.Chunk(doc.Text)
	res.Chunks = len(chunks)
	if len(chunks) == 0 {
		p.logger.Warn("document produced no chunks, skipping", zap.String("path", doc.Path))
		res.Skipped = true
		return res
	}

	summary := p.summarizer.Summarize(ctx, doc.Text)

	records := make([]models.ChunkRecord, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.EmbedConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			// The embedding sees the document summary in front of the chunk;
			// the stored chunk text does not.
			vec, err := p.embedder.Embed(gctx, fmt.Sprintf("Summary: %s\n\n%s", summary, chunk.Text))
			if err != nil {
				p.logger.Warn("chunk embedding failed, chunk will not be indexed",
					zap.String("path", doc.Path),
					zap.Int("chunk", chunk.Index),
					zap.Error(err))
				return nil
			}
			records[i] = models.ChunkRecord{ChunkText: chunk.Text, Embedding: vec}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	// An empty vector means "unembedded" and must never reach the index.
	var embedded []models.ChunkRecord
	for _, r := range records {
		if len(r.Embedding) > 0 {
			embedded = append(embedded, r)
		}
	}
	if len(embedded) == 0 {
		res.Err = fmt.Errorf("no chunk of %s could be embedded", doc.Path)
		return res
	}

	parent := &models.DocumentRecord{
		FileName:  doc.Name,
		FilePath:  doc.Path,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}

	write, err := p.store.WriteDocument(ctx, parent, embedded)
	if err != nil {
		res.Err = err
		return res
	}
	res.DocID = write.ParentID

	if failed := write.Failed(); len(failed) > 0 {
		// Ids were minted on the first attempt, so resubmitting the batch
		// overwrites the records that made it and fills in the ones that
		// did not.
		p.logger.Warn("bulk write reported failed entries, retrying once",
			zap.String("doc", write.ParentID),
			zap.Int("failed", len(failed)))
		retry, rerr := p.store.WriteDocument(ctx, parent, embedded)
		if rerr != nil {
			res.Err = rerr
			return res
		}
		if failed = retry.Failed(); len(failed) > 0 {
			res.Err = fmt.Errorf("write of %s failed for %d of %d entries",
				doc.Path, len(failed), len(embedded)+1)
			return res
		}
	}

	res.ChunksWritten = len(embedded)
	return res
}

// IngestAll runs document pipelines concurrently under a bounded worker
// pool. onDone, if set, is called once per finished document from the
// worker goroutine. Per-document failures land in the Results, not in an
// error: a bad document never aborts the batch.
func (p *Pipeline) IngestAll(ctx context.Context, docs []models.Document, onDone func(Result)) []Result {
	results := make([]Result, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			results[i] = p.IngestDocument(gctx, doc)
			if onDone != nil {
				onDone(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
