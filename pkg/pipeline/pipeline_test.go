package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/models"
	"github.com/quarry-search/quarry/pkg/chunker"
)

type fakeSummarizer struct{ summary string }

func (f fakeSummarizer) Summarize(ctx context.Context, text string) string { return f.summary }

type fakeEmbedder struct {
	mu     sync.Mutex
	inputs []string
	// substrings of inputs that should fail to embed
	failOn []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	f.mu.Unlock()
	for _, bad := range f.failOn {
		if strings.Contains(text, bad) {
			return nil, errors.New("model overloaded")
		}
	}
	return []float32{1, 0, 0}, nil
}

type writeCall struct {
	parentID string
	chunkIDs []string
}

type fakeStore struct {
	mu    sync.Mutex
	calls []writeCall
	// per-call entry failures, keyed by call ordinal
	failEntries map[int][]models.EntryResult
	writeErr    error
}

func (f *fakeStore) EnsureIndex(ctx context.Context) error { return nil }

func (f *fakeStore) WriteDocument(ctx context.Context, parent *models.DocumentRecord, chunks []models.ChunkRecord) (*models.WriteResult, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if parent.DocID == "" {
		parent.DocID = uuid.NewString()
	}
	call := writeCall{parentID: parent.DocID}
	for i := range chunks {
		if chunks[i].ChunkID == "" {
			chunks[i].ChunkID = uuid.NewString()
		}
		call.chunkIDs = append(call.chunkIDs, chunks[i].ChunkID)
	}

	f.mu.Lock()
	ordinal := len(f.calls)
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	res := &models.WriteResult{ParentID: parent.DocID}
	res.Entries = append(res.Entries, models.EntryResult{ID: parent.DocID, Kind: "document", Status: 201})
	for _, id := range call.chunkIDs {
		res.Entries = append(res.Entries, models.EntryResult{ID: id, Kind: "chunk", Status: 201})
	}
	if failed, ok := f.failEntries[ordinal]; ok {
		res.Entries = append(res.Entries[:1], failed...)
	}
	return res, nil
}

func (f *fakeStore) HybridSearch(ctx context.Context, query string, vector []float32, limit int) ([]models.ParentHit, error) {
	return nil, errors.New("not a query store")
}

func newTestPipeline(emb *fakeEmbedder, store *fakeStore) *Pipeline {
	ch := chunker.NewWithConfig(chunker.Config{Strategy: chunker.StrategyParagraph}, nil)
	return NewWithConfig(Config{}, ch, fakeSummarizer{summary: "two short paragraphs"}, emb, store, nil)
}

func TestIngestDocument(t *testing.T) {
	emb := &fakeEmbedder{}
	store := &fakeStore{}
	p := newTestPipeline(emb, store)

	res := p.IngestDocument(context.Background(), models.Document{
		Name: "a.txt",
		Path: "/docs/a.txt",
		Text: "Para one.\n\nPara two.",
	})

	require.NoError(t, res.Err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, res.ChunksWritten)
	assert.NotEmpty(t, res.DocID)

	require.Len(t, store.calls, 1)
	assert.Len(t, store.calls[0].chunkIDs, 2)

	// Each chunk is embedded behind the document summary.
	require.Len(t, emb.inputs, 2)
	for _, in := range emb.inputs {
		assert.True(t, strings.HasPrefix(in, "Summary: two short paragraphs\n\n"), in)
	}
}

func TestIngestDocument_EmptySkips(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(&fakeEmbedder{}, store)

	res := p.IngestDocument(context.Background(), models.Document{Path: "/docs/empty.txt", Text: "  \n\n "})

	require.NoError(t, res.Err)
	assert.True(t, res.Skipped)
	assert.Empty(t, store.calls, "skipped documents must not be written")
}

func TestIngestDocument_DropsFailedChunks(t *testing.T) {
	emb := &fakeEmbedder{failOn: []string{"Para two"}}
	store := &fakeStore{}
	p := newTestPipeline(emb, store)

	res := p.IngestDocument(context.Background(), models.Document{
		Path: "/docs/a.txt",
		Text: "Para one.\n\nPara two.",
	})

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 1, res.ChunksWritten)
	require.Len(t, store.calls, 1)
	assert.Len(t, store.calls[0].chunkIDs, 1)
}

func TestIngestDocument_AllChunksFailedIsError(t *testing.T) {
	emb := &fakeEmbedder{failOn: []string{"Para"}}
	store := &fakeStore{}
	p := newTestPipeline(emb, store)

	res := p.IngestDocument(context.Background(), models.Document{
		Path: "/docs/a.txt",
		Text: "Para one.\n\nPara two.",
	})

	require.Error(t, res.Err)
	assert.Empty(t, store.calls)
}

func TestIngestDocument_CancelledBeforeWrite(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(&fakeEmbedder{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.IngestDocument(ctx, models.Document{Path: "/docs/a.txt", Text: "Para one.\n\nPara two."})

	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, store.calls, "cancelled work must be discarded, not written")
}

func TestIngestDocument_RetriesFailedWriteOnce(t *testing.T) {
	store := &fakeStore{
		failEntries: map[int][]models.EntryResult{
			0: {{ID: "c-1", Kind: "chunk", Status: 429, Error: "queue full"}},
		},
	}
	p := newTestPipeline(&fakeEmbedder{}, store)

	res := p.IngestDocument(context.Background(), models.Document{
		Path: "/docs/a.txt",
		Text: "Para one.\n\nPara two.",
	})

	require.NoError(t, res.Err)
	require.Len(t, store.calls, 2)
	// The retry resubmits under the ids minted on the first attempt.
	assert.Equal(t, store.calls[0].parentID, store.calls[1].parentID)
	assert.Equal(t, store.calls[0].chunkIDs, store.calls[1].chunkIDs)
}

func TestIngestDocument_PersistentWriteFailure(t *testing.T) {
	store := &fakeStore{failEntries: map[int][]models.EntryResult{
		0: {{ID: "c-1", Kind: "chunk", Status: 429, Error: "queue full"}},
		1: {{ID: "c-1", Kind: "chunk", Status: 429, Error: "queue full"}},
	}}
	p := newTestPipeline(&fakeEmbedder{}, store)

	res := p.IngestDocument(context.Background(), models.Document{
		Path: "/docs/a.txt",
		Text: "Para one.\n\nPara two.",
	})

	require.Error(t, res.Err)
	assert.Len(t, store.calls, 2, "one retry, never more")
}

func TestIngestAll(t *testing.T) {
	emb := &fakeEmbedder{failOn: []string{"broken"}}
	store := &fakeStore{}
	p := newTestPipeline(emb, store)

	docs := []models.Document{
		{Name: "a.txt", Path: "/docs/a.txt", Text: "Para one.\n\nPara two."},
		{Name: "b.txt", Path: "/docs/b.txt", Text: "broken paragraph"},
		{Name: "c.txt", Path: "/docs/c.txt", Text: ""},
	}

	var mu sync.Mutex
	done := 0
	results := p.IngestAll(context.Background(), docs, func(Result) {
		mu.Lock()
		done++
		mu.Unlock()
	})

	require.Len(t, results, 3)
	assert.Equal(t, 3, done)

	byPath := map[string]Result{}
	for _, r := range results {
		byPath[r.Path] = r
	}
	assert.NoError(t, byPath["/docs/a.txt"].Err)
	assert.Equal(t, 2, byPath["/docs/a.txt"].ChunksWritten)
	assert.Error(t, byPath["/docs/b.txt"].Err, "a bad document fails alone")
	assert.True(t, byPath["/docs/c.txt"].Skipped)
}

func TestIngestAll_ManyDocumentsBoundedWorkers(t *testing.T) {
	store := &fakeStore{}
	ch := chunker.NewWithConfig(chunker.Config{Strategy: chunker.StrategyParagraph}, nil)
	p := NewWithConfig(Config{Workers: 2}, ch, fakeSummarizer{}, &fakeEmbedder{}, store, nil)

	var docs []models.Document
	for i := 0; i < 20; i++ {
		docs = append(docs, models.Document{
			Path: fmt.Sprintf("/docs/%d.txt", i),
			Text: fmt.Sprintf("Document number %d.", i),
		})
	}

	results := p.IngestAll(context.Background(), docs, nil)
	require.Len(t, results, 20)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	assert.Len(t, store.calls, 20)
}
