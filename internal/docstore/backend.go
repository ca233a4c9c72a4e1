// Package docstore provides the document-store abstraction the ingestion
// pipeline persists into: slash-delimited document paths, merge upserts,
// collection ID listing and bounded transactional batches.
package docstore

import "context"

// MaxBatchOps caps one transactional batch; commits above the cap fail.
const MaxBatchOps = 500

// Document is one stored record.
type Document struct {
	ID     string
	Path   string
	Fields map[string]any
}

// Batch stages document writes committed in a single transaction.
type Batch interface {
	Set(path string, fields map[string]any)
	Len() int
	Commit(ctx context.Context) error
}

// Backend is the document-store abstraction. Paths alternate
// collection/document segments, e.g. "whatsapp_groups/<gid>/messages/<mid>".
type Backend interface {
	// Upsert writes fields at path. With merge, existing fields not named
	// in fields are preserved.
	Upsert(ctx context.Context, path string, fields map[string]any, merge bool) error

	// Get returns the fields of the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (map[string]any, error)

	// ListIDs returns the IDs of all documents directly in collectionPath.
	ListIDs(ctx context.Context, collectionPath string) ([]string, error)

	// List returns documents in collectionPath ordered by path. A limit
	// of zero or less means no limit.
	List(ctx context.Context, collectionPath string, limit, offset int) ([]Document, error)

	// NewBatch returns an empty write batch.
	NewBatch() Batch
}
