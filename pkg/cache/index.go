package cache

import (
	"context"

	"github.com/google/uuid"
)

// VectorIndex is the pluggable nearest-neighbor backend for the semantic
// cache. Implementations only need to return an unranked candidate set;
// Service does the token-overlap reranking and threshold gate.
type VectorIndex interface {
	// Insert adds an entry to the index, scoped by ModelID.
	Insert(ctx context.Context, e Entry) error

	// Search returns up to k candidate entries for modelID whose query text
	// is near query, in no particular similarity order.
	Search(ctx context.Context, modelID uuid.UUID, query string, k int) ([]Entry, error)

	// Invalidate removes every entry scoped to modelID.
	Invalidate(ctx context.Context, modelID uuid.UUID) error

	// Persist flushes the index to its backing store, if any. The
	// in-process index rewrites its file on disk; the Milvus index flushes
	// the collection so pending inserts become visible to search sooner.
	Persist(ctx context.Context) error
}
