package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	var gotToken, gotQuery, gotCount string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		gotCount = r.URL.Query().Get("count")
		resp := map[string]any{
			"web": map[string]any{
				"results": []map[string]any{
					{
						"title":       "Hybrid <strong>search</strong> explained",
						"url":         "https://example.com/hybrid",
						"description": "Combining <strong>BM25</strong> with vectors.",
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(resp)
		assert.NoError(t, err)
	}))
	defer ts.Close()

	c := NewWithConfig(Config{Endpoint: ts.URL, APIKey: "secret", RateLimit: 100})
	results, err := c.Search(context.Background(), "hybrid search", 3)
	require.NoError(t, err)

	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "hybrid search", gotQuery)
	assert.Equal(t, "3", gotCount)

	require.Len(t, results, 1)
	// Highlight markup is stripped before the snippet reaches a prompt.
	assert.Equal(t, "Title: Hybrid search explained\nURL: https://example.com/hybrid\nSnippet: Combining BM25 with vectors.", results[0])
}

func TestSearch_MissingKey(t *testing.T) {
	c := NewWithConfig(Config{Endpoint: "http://localhost:0"})
	_, err := c.Search(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestSearch_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewWithConfig(Config{Endpoint: ts.URL, APIKey: "secret", RateLimit: 100})
	_, err := c.Search(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
