// Package vectorstore defines the contract shared by the vector index
// backends. At most one queryable index exists per process; it is replaced
// wholesale on every ingestion.
package vectorstore

import (
	"context"
	"errors"

	"document-qa/internal/models"
)

var (
	// ErrEmbedding means the embedding service failed while building the
	// index. Nothing is persisted when this is returned.
	ErrEmbedding = errors.New("embedding failed")

	// ErrPersistence means the index storage could not be written.
	ErrPersistence = errors.New("vector store persistence failed")

	// ErrIndexClosed means a search hit a handle that was already torn down.
	ErrIndexClosed = errors.New("vector index closed")

	// ErrTeardown means persisted index storage could not be deleted. A new
	// rebuild must not start until teardown succeeds.
	ErrTeardown = errors.New("vector store teardown failed")
)

// EmbedFunc maps a batch of texts to fixed-dimension vectors, one per text
// and in the same order.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Store owns the durable index storage under a fixed collection name.
type Store interface {
	// Rebuild embeds every chunk and persists the index, returning a handle
	// only once the whole structure is queryable. Embedding runs before any
	// persistence, so an embedding failure leaves no partial index behind.
	Rebuild(ctx context.Context, chunks []models.Chunk, embed EmbedFunc) (Handle, error)

	// Teardown deletes the persisted index storage. It is idempotent:
	// calling it when storage is absent or partially missing is not an
	// error.
	Teardown(ctx context.Context) error
}

// Handle is an opaque reference to one fully built index.
type Handle interface {
	// Search returns the k nearest chunks, best score first; ties are broken
	// by ChunkID ascending. k is clamped to Len().
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)

	// Len reports the number of indexed chunks.
	Len() int

	// Close releases the in-memory references held by the handle. Searches
	// after Close fail with ErrIndexClosed.
	Close() error
}
