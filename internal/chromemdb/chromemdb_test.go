package chromemdb

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
	"document-qa/internal/vectorstore"
)

// stubEmbed derives a deterministic vector from the text so that identical
// texts land on identical embeddings.
func stubEmbed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		sum := sha256.Sum256([]byte(text))
		v := make([]float32, 8)
		for j := range v {
			v[j] = float32(sum[j]) + 1
		}
		vectors[i] = v
	}
	return vectors, nil
}

func testChunks() []models.Chunk {
	return []models.Chunk{
		{Content: "the solar system has eight planets", PageNumber: 1, ChunkID: 1, SourceFilename: "doc.txt"},
		{Content: "jupiter is the largest planet", PageNumber: 1, ChunkID: 2, SourceFilename: "doc.txt"},
		{Content: "mercury orbits closest to the sun", PageNumber: 2, ChunkID: 3, SourceFilename: "doc.txt"},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "test_collection")
	require.NoError(t, err)
	return store
}

func TestRebuildSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	handle, err := store.Rebuild(ctx, testChunks(), stubEmbed)
	require.NoError(t, err)
	require.Equal(t, 3, handle.Len())

	// query with a chunk's own embedding must return that chunk first
	queryVec, err := stubEmbed(ctx, []string{"jupiter is the largest planet"})
	require.NoError(t, err)

	results, err := handle.Search(ctx, queryVec[0], 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "jupiter is the largest planet", results[0].Chunk.Content)
	assert.Equal(t, 2, results[0].Chunk.ChunkID)
	assert.Equal(t, 1, results[0].Chunk.PageNumber)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.001)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearchClampsK(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	handle, err := store.Rebuild(ctx, testChunks(), stubEmbed)
	require.NoError(t, err)

	queryVec, err := stubEmbed(ctx, []string{"planets"})
	require.NoError(t, err)

	results, err := handle.Search(ctx, queryVec[0], 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchAfterClose(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	handle, err := store.Rebuild(ctx, testChunks(), stubEmbed)
	require.NoError(t, err)
	require.NoError(t, handle.Close())

	queryVec, err := stubEmbed(ctx, []string{"planets"})
	require.NoError(t, err)

	_, err = handle.Search(ctx, queryVec[0], 1)
	assert.ErrorIs(t, err, vectorstore.ErrIndexClosed)
}

func TestTeardownIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// teardown before any rebuild must not fail
	require.NoError(t, store.Teardown(ctx))

	_, err := store.Rebuild(ctx, testChunks(), stubEmbed)
	require.NoError(t, err)

	require.NoError(t, store.Teardown(ctx))
	require.NoError(t, store.Teardown(ctx))
}

func TestRebuildAfterTeardown(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Rebuild(ctx, testChunks(), stubEmbed)
	require.NoError(t, err)
	require.NoError(t, store.Teardown(ctx))

	replacement := []models.Chunk{
		{Content: "entirely new content", PageNumber: 1, ChunkID: 1, SourceFilename: "other.txt"},
	}
	handle, err := store.Rebuild(ctx, replacement, stubEmbed)
	require.NoError(t, err)
	require.Equal(t, 1, handle.Len())

	queryVec, err := stubEmbed(ctx, []string{"entirely new content"})
	require.NoError(t, err)
	results, err := handle.Search(ctx, queryVec[0], 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "entirely new content", results[0].Chunk.Content)
}

func TestRebuildEmbedFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	failing := func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	handle, err := store.Rebuild(ctx, testChunks(), failing)
	assert.ErrorIs(t, err, vectorstore.ErrEmbedding)
	assert.Nil(t, handle)
}

func TestRebuildEmptyChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	handle, err := store.Rebuild(ctx, nil, stubEmbed)
	require.NoError(t, err)
	assert.Equal(t, 0, handle.Len())

	results, err := handle.Search(ctx, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
