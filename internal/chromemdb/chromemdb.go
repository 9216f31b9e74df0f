// Package chromemdb implements the vector store contract on top of a
// persistent chromem-go database.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	"document-qa/internal/vectorstore"
)

const compress = false

// Store encapsulates the chromem-go database operations for the single
// document collection.
type Store struct {
	db         *chromem.DB
	dbPath     string
	collection string
}

// NewStore opens (or creates) the persistent database at dbPath.
func NewStore(dbPath, collection string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dbPath, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}
	return &Store{
		db:         db,
		dbPath:     dbPath,
		collection: collection,
	}, nil
}

func (s *Store) Rebuild(ctx context.Context, chunks []models.Chunk, embed vectorstore.EmbedFunc) (vectorstore.Handle, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	// Embed everything up front so a failing embedding call never leaves a
	// half-written collection on disk.
	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vectorstore.ErrEmbedding, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks", vectorstore.ErrEmbedding, len(vectors), len(texts))
		}
	}

	// Rebuild is destructive-and-replace: any prior collection under the
	// fixed name is discarded before the new one is persisted.
	if err := s.db.DeleteCollection(s.collection); err != nil {
		return nil, fmt.Errorf("%w: failed to drop stale collection: %v", vectorstore.ErrPersistence, err)
	}
	col, err := s.db.GetOrCreateCollection(s.collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create collection: %v", vectorstore.ErrPersistence, err)
	}

	if len(chunks) > 0 {
		docs := make([]chromem.Document, len(chunks))
		for i, c := range chunks {
			docs[i] = chromem.Document{
				ID:        fmt.Sprintf("%s-%d", c.SourceFilename, c.ChunkID),
				Content:   c.Content,
				Metadata:  createMetadata(c),
				Embedding: vectors[i],
			}
		}
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("%w: failed to add documents: %v", vectorstore.ErrPersistence, err)
		}
	}

	log.Debug().Int("chunks", len(chunks)).Str("collection", s.collection).Msg("Rebuilt vector collection")
	return &Collection{col: col, count: len(chunks)}, nil
}

func (s *Store) Teardown(ctx context.Context) error {
	// DeleteCollection is a no-op when the collection does not exist, which
	// makes retrying a failed teardown safe.
	if err := s.db.DeleteCollection(s.collection); err != nil {
		return fmt.Errorf("%w: %v", vectorstore.ErrTeardown, err)
	}
	log.Debug().Str("collection", s.collection).Msg("Dropped vector collection")
	return nil
}

// Collection is a handle to one fully built chromem collection.
type Collection struct {
	mu    sync.RWMutex
	col   *chromem.Collection
	count int
}

func (c *Collection) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.col == nil {
		return nil, vectorstore.ErrIndexClosed
	}

	if k > c.count {
		k = c.count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := c.col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	scored := make([]models.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				Content:        res.Content,
				PageNumber:     atoiMeta(res.Metadata, "page"),
				ChunkID:        atoiMeta(res.Metadata, "chunk"),
				SourceFilename: res.Metadata["source"],
			},
			Score: res.Similarity,
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ChunkID < scored[j].Chunk.ChunkID
	})
	return scored, nil
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.col = nil
	return nil
}

func createMetadata(c models.Chunk) map[string]string {
	return map[string]string{
		"source": c.SourceFilename,
		"page":   strconv.Itoa(c.PageNumber),
		"chunk":  strconv.Itoa(c.ChunkID),
	}
}

func atoiMeta(meta map[string]string, key string) int {
	n, _ := strconv.Atoi(meta[key])
	return n
}
