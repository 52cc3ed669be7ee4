package models

import "time"

// Document is one ingestion input: a source file and its extracted text,
// pages concatenated in order.
type Document struct {
	Name string
	Path string
	Text string
}

// Chunk is one ordered, non-empty piece of a document's text produced by a
// single chunking strategy. Immutable once created.
type Chunk struct {
	Index int
	Text  string
}

// JoinField links a chunk record to its owning document record. The index
// uses it, together with the routing key, to co-locate children with their
// parent so join queries resolve correctly.
type JoinField struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// DocumentRecord is the parent-kind index entity representing one document.
// Written exactly once per ingestion run and never mutated afterwards.
type DocumentRecord struct {
	DocID     string    `json:"doc_id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
	Relation  string    `json:"join_field"`
}

// ChunkRecord is the child-kind index entity representing one chunk. A
// record whose Relation does not resolve to a document record is invalid.
type ChunkRecord struct {
	ChunkID   string    `json:"chunk_id"`
	ChunkText string    `json:"chunk_text"`
	Embedding []float32 `json:"embedding"`
	Relation  JoinField `json:"join_field"`
}

// EntryResult is the per-entry outcome of one bulk operation.
type EntryResult struct {
	ID     string
	Kind   string
	Status int
	Error  string
}

// WriteResult reports one document's bulk write, entry by entry. The bulk
// call is not transactional, so some entries may fail while others succeed.
type WriteResult struct {
	ParentID string
	Entries  []EntryResult
}

// Failed returns the entries that were rejected by the index.
func (r *WriteResult) Failed() []EntryResult {
	var out []EntryResult
	for _, e := range r.Entries {
		if e.Error != "" || e.Status >= 400 {
			out = append(out, e)
		}
	}
	return out
}

// ParentHit is one ranked query result. Only parent metadata is exposed:
// callers search chunk content but consume document-level answers.
type ParentHit struct {
	DocID     string
	FileName  string
	FilePath  string
	Summary   string
	Timestamp string
	Score     float64
}
