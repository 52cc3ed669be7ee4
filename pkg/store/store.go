package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"
)

// Relation names for the two record kinds in the index.
const (
	KindDocument = "document"
	KindChunk    = "chunk"
)

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	VectorDim int
	Timeout   time.Duration
}

// Store wraps the OpenSearch index holding document (parent) and chunk
// (child) records. Safe for concurrent use.
type Store struct {
	config Config
	client *opensearch.Client
	logger *zap.Logger
}

func NewWithConfig(config Config, logger *zap.Logger) (*Store, error) {
	if len(config.Addresses) == 0 {
		config.Addresses = []string{"http://localhost:9200"}
	}
	if config.Index == "" {
		config.Index = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index client: %w", err)
	}

	return &Store{config: config, client: client, logger: logger}, nil
}

// mapping declares the index schema: keyword fields for file identity, text
// fields for summary and chunk content, a vector field of the configured
// dimensionality, and the document→chunk join relation.
func (s *Store) mapping() string {
	return fmt.Sprintf(`{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "file_name": {"type": "keyword"},
      "file_path": {"type": "keyword"},
      "summary": {"type": "text"},
      "timestamp": {"type": "date"},
      "chunk_text": {"type": "text"},
      "embedding": {"type": "dense_vector", "dims": %d},
      "join_field": {"type": "join", "relations": {"document": "chunk"}}
    }
  }
}`, s.config.VectorDim)
}

// EnsureIndex creates the index with the parent/child mapping if it does not
// exist. An existing index is never overwritten. An existing index whose
// vector dimensionality differs from the configured one is a setup error:
// every subsequent write would fail identically, so the whole run fails here
// instead of per document.
func (s *Store) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	exists, err := opensearchapi.IndicesExistsRequest{
		Index: []string{s.config.Index},
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index existence check failed: %w", err)
	}
	defer exists.Body.Close()

	switch exists.StatusCode {
	case 200:
		s.logger.Info("index already exists", zap.String("index", s.config.Index))
		return s.checkVectorDim(ctx)
	case 404:
		// fall through to creation
	default:
		return fmt.Errorf("index existence check failed: %s", exists.Status())
	}

	create, err := opensearchapi.IndicesCreateRequest{
		Index: s.config.Index,
		Body:  strings.NewReader(s.mapping()),
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index creation failed: %w", err)
	}
	defer create.Body.Close()
	if create.IsError() {
		return fmt.Errorf("index creation failed: %s", create.String())
	}

	s.logger.Info("index created",
		zap.String("index", s.config.Index),
		zap.Int("vector_dim", s.config.VectorDim))
	return nil
}

func (s *Store) checkVectorDim(ctx context.Context) error {
	res, err := opensearchapi.IndicesGetMappingRequest{
		Index: []string{s.config.Index},
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("mapping fetch failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("mapping fetch failed: %s", res.Status())
	}

	var body map[string]struct {
		Mappings struct {
			Properties struct {
				Embedding struct {
					Dims int `json:"dims"`
				} `json:"embedding"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("mapping parse failed: %w", err)
	}

	for _, idx := range body {
		dims := idx.Mappings.Properties.Embedding.Dims
		if dims != 0 && dims != s.config.VectorDim {
			return fmt.Errorf("index %q has embedding dimension %d but %d is configured",
				s.config.Index, dims, s.config.VectorDim)
		}
	}
	return nil
}
