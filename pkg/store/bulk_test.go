package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/models"
)

func testStore(t *testing.T, handler http.Handler) (*Store, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	s, err := NewWithConfig(Config{
		Addresses: []string{ts.URL},
		Index:     "documents",
		VectorDim: 3,
	}, nil)
	require.NoError(t, err)
	return s, ts
}

// bulkOK answers any bulk request with a success item per entry.
func bulkOK(t *testing.T, gotBodies *[]string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_bulk", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body := string(raw)
		*gotBodies = append(*gotBodies, body)

		lines := nonEmptyLines(body)
		items := make([]map[string]any, 0, len(lines)/2)
		for i := 0; i < len(lines); i += 2 {
			var meta map[string]struct {
				ID string `json:"_id"`
			}
			require.NoError(t, json.Unmarshal([]byte(lines[i]), &meta))
			items = append(items, map[string]any{
				"index": map[string]any{"_id": meta["index"].ID, "status": 201},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(map[string]any{"errors": false, "items": items})
		assert.NoError(t, err)
	})
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestBuildBulkBody(t *testing.T) {
	parent := &models.DocumentRecord{
		DocID:    "doc-1",
		FileName: "a.pdf",
		FilePath: "/docs/a.pdf",
		Relation: KindDocument,
	}
	chunks := []models.ChunkRecord{
		{ChunkID: "c-1", ChunkText: "one", Embedding: []float32{1, 0, 0}, Relation: models.JoinField{Name: KindChunk, Parent: "doc-1"}},
		{ChunkID: "c-2", ChunkText: "two", Embedding: []float32{0, 1, 0}, Relation: models.JoinField{Name: KindChunk, Parent: "doc-1"}},
		{ChunkID: "c-3", ChunkText: "three", Embedding: []float32{0, 0, 1}, Relation: models.JoinField{Name: KindChunk, Parent: "doc-1"}},
	}

	body, err := buildBulkBody("documents", parent, chunks)
	require.NoError(t, err)

	lines := nonEmptyLines(body)
	// K+1 entries, two lines each: action metadata then source.
	require.Len(t, lines, 2*(len(chunks)+1))

	// Parent action carries no routing.
	var parentMeta map[string]bulkAction
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &parentMeta))
	assert.Equal(t, "doc-1", parentMeta["index"].ID)
	assert.Empty(t, parentMeta["index"].Routing)

	// Every chunk action is routed by the parent id and its source
	// references the parent through the join field.
	for i := 1; i <= len(chunks); i++ {
		var meta map[string]bulkAction
		require.NoError(t, json.Unmarshal([]byte(lines[2*i]), &meta))
		assert.Equal(t, "doc-1", meta["index"].Routing)

		var src models.ChunkRecord
		require.NoError(t, json.Unmarshal([]byte(lines[2*i+1]), &src))
		assert.Equal(t, KindChunk, src.Relation.Name)
		assert.Equal(t, "doc-1", src.Relation.Parent)
	}
}

func TestWriteDocument_MintsIdsOnce(t *testing.T) {
	var bodies []string
	s, _ := testStore(t, bulkOK(t, &bodies))

	parent := &models.DocumentRecord{FileName: "a.txt", FilePath: "/a.txt"}
	chunks := []models.ChunkRecord{
		{ChunkText: "one", Embedding: []float32{1, 0, 0}},
		{ChunkText: "two", Embedding: []float32{0, 1, 0}},
	}

	res, err := s.WriteDocument(context.Background(), parent, chunks)
	require.NoError(t, err)
	require.NotEmpty(t, parent.DocID)
	require.Len(t, res.Entries, 3)
	assert.Empty(t, res.Failed())

	firstParentID := parent.DocID
	firstChunkIDs := []string{chunks[0].ChunkID, chunks[1].ChunkID}
	assert.NotEmpty(t, firstChunkIDs[0])
	assert.NotEqual(t, firstChunkIDs[0], firstChunkIDs[1])

	// Resubmitting the same records keeps the ids: the write is an
	// overwrite, not a duplicate.
	_, err = s.WriteDocument(context.Background(), parent, chunks)
	require.NoError(t, err)
	assert.Equal(t, firstParentID, parent.DocID)
	assert.Equal(t, firstChunkIDs, []string{chunks[0].ChunkID, chunks[1].ChunkID})

	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
}

func TestWriteDocument_PartialFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"errors": true,
			"items": []map[string]any{
				{"index": map[string]any{"_id": "p", "status": 201}},
				{"index": map[string]any{"_id": "c1", "status": 201}},
				{"index": map[string]any{"_id": "c2", "status": 429, "error": map[string]any{
					"type":   "es_rejected_execution_exception",
					"reason": "queue full",
				}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(resp)
		assert.NoError(t, err)
	})
	s, _ := testStore(t, handler)

	parent := &models.DocumentRecord{FileName: "a.txt"}
	chunks := []models.ChunkRecord{
		{ChunkText: "one", Embedding: []float32{1, 0, 0}},
		{ChunkText: "two", Embedding: []float32{0, 1, 0}},
	}

	res, err := s.WriteDocument(context.Background(), parent, chunks)
	require.NoError(t, err)

	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "c2", failed[0].ID)
	assert.Equal(t, KindChunk, failed[0].Kind)
	assert.Contains(t, failed[0].Error, "queue full")
}
