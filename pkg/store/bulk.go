package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/quarry-search/quarry/internal/models"
)

type bulkAction struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Routing string `json:"routing,omitempty"`
}

// WriteDocument submits one parent record and its chunk records as a single
// bulk operation. Ids are minted only when unassigned, so resubmitting the
// same records overwrites instead of duplicating. Every chunk entry carries
// the parent id both as its join reference and as its routing key — the
// index co-locates children with their parent on that key, and the join
// query only resolves when they match.
//
// The bulk call is not transactional: the returned WriteResult reports each
// entry, and the caller decides whether to retry the failed ones or discard
// the document's write.
func (s *Store) WriteDocument(ctx context.Context, parent *models.DocumentRecord, chunks []models.ChunkRecord) (*models.WriteResult, error) {
	if parent.DocID == "" {
		parent.DocID = uuid.NewString()
	}
	if parent.Timestamp.IsZero() {
		parent.Timestamp = time.Now().UTC()
	}
	parent.Relation = KindDocument

	for i := range chunks {
		if chunks[i].ChunkID == "" {
			chunks[i].ChunkID = uuid.NewString()
		}
		chunks[i].Relation = models.JoinField{Name: KindChunk, Parent: parent.DocID}
	}

	body, err := buildBulkBody(s.config.Index, parent, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to build bulk request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	res, err := opensearchapi.BulkRequest{
		Body: strings.NewReader(body),
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("bulk write failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk write failed: %s", res.Status())
	}

	result, err := parseBulkResponse(res.Body, parent.DocID)
	if err != nil {
		return nil, err
	}

	if failed := result.Failed(); len(failed) > 0 {
		s.logger.Warn("bulk write partially failed",
			zap.String("doc", parent.DocID),
			zap.Int("failed", len(failed)),
			zap.Int("total", len(chunks)+1))
	} else {
		s.logger.Info("indexed document",
			zap.String("doc", parent.DocID),
			zap.Int("chunks", len(chunks)))
	}
	return result, nil
}

// buildBulkBody renders the newline-delimited bulk payload: one parent-kind
// entry followed by one chunk-kind entry per chunk, K+1 entries in total.
func buildBulkBody(index string, parent *models.DocumentRecord, chunks []models.ChunkRecord) (string, error) {
	var b strings.Builder

	writeEntry := func(action bulkAction, source any) error {
		meta, err := json.Marshal(map[string]bulkAction{"index": action})
		if err != nil {
			return err
		}
		src, err := json.Marshal(source)
		if err != nil {
			return err
		}
		b.Write(meta)
		b.WriteByte('\n')
		b.Write(src)
		b.WriteByte('\n')
		return nil
	}

	if err := writeEntry(bulkAction{Index: index, ID: parent.DocID}, parent); err != nil {
		return "", err
	}
	for i := range chunks {
		action := bulkAction{Index: index, ID: chunks[i].ChunkID, Routing: parent.DocID}
		if err := writeEntry(action, &chunks[i]); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func parseBulkResponse(r io.Reader, parentID string) (*models.WriteResult, error) {
	var resp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("bulk response parse failed: %w", err)
	}

	result := &models.WriteResult{ParentID: parentID}
	for i, item := range resp.Items {
		for _, entry := range item {
			kind := KindChunk
			if i == 0 {
				kind = KindDocument
			}
			e := models.EntryResult{ID: entry.ID, Kind: kind, Status: entry.Status}
			if entry.Error != nil {
				e.Error = fmt.Sprintf("%s: %s", entry.Error.Type, entry.Error.Reason)
			}
			result.Entries = append(result.Entries, e)
		}
	}
	return result, nil
}
