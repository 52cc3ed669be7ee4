package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/quarry-search/quarry/internal/models"
)

// HybridSearch runs one combined lexical+vector query over chunk records and
// returns ranked parent metadata, most relevant first. A parent with no
// matching chunk is absent from the results.
func (s *Store) HybridSearch(ctx context.Context, query string, vector []float32, limit int) ([]models.ParentHit, error) {
	if limit <= 0 {
		limit = 10
	}

	body, err := buildHybridQuery(query, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	res, err := opensearchapi.SearchRequest{
		Index: []string{s.config.Index},
		Body:  strings.NewReader(body),
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var resp struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					FileName  string `json:"file_name"`
					FilePath  string `json:"file_path"`
					Summary   string `json:"summary"`
					Timestamp string `json:"timestamp"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("search response parse failed: %w", err)
	}

	hits := make([]models.ParentHit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hits = append(hits, models.ParentHit{
			DocID:     h.ID,
			FileName:  h.Source.FileName,
			FilePath:  h.Source.FilePath,
			Summary:   h.Source.Summary,
			Timestamp: h.Source.Timestamp,
			Score:     h.Score,
		})
	}

	s.logger.Info("hybrid search complete",
		zap.String("query", query),
		zap.Int("hits", len(hits)))
	return hits, nil
}

// buildHybridQuery renders the retrieval request: a has_child query scoped
// to chunk records, scoring each candidate by a lexical match on chunk_text
// inside a script that adds the cosine similarity between the query vector
// and the stored embedding (+1.0 keeps scores non-negative). score_mode max
// aggregates to the parent by its best-matching chunk, and the result set is
// the parent records themselves.
func buildHybridQuery(query string, vector []float32, limit int) (string, error) {
	req := map[string]any{
		"size": limit,
		"query": map[string]any{
			"has_child": map[string]any{
				"type":       KindChunk,
				"score_mode": "max",
				"query": map[string]any{
					"script_score": map[string]any{
						"query": map[string]any{
							"bool": map[string]any{
								"should": []any{
									map[string]any{"match": map[string]any{"chunk_text": query}},
								},
							},
						},
						"script": map[string]any{
							"source": "cosineSimilarity(params.query_vector, 'embedding') + 1.0",
							"params": map[string]any{"query_vector": vector},
						},
					},
				},
			},
		},
	}

	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
