// Package db implements the vector store contract on Postgres with the
// pgvector extension, for deployments that already run Postgres instead of
// local chromem storage.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/models"
	"document-qa/internal/vectorstore"
)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Content       string    `bun:"content,notnull"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
	SourceFile    string    `bun:"source_file,notnull"`
	PageNumber    int       `bun:"page_number,notnull"`
	ChunkID       int       `bun:"chunk_id,notnull"`
	Distance      float64   `bun:"distance,scanonly"`
}

// Store keeps the document index in a single Postgres table that is
// dropped and recreated on every rebuild.
type Store struct {
	db *bun.DB
}

func NewStore(dsn, password string, debug bool) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Rebuild(ctx context.Context, chunks []models.Chunk, embed vectorstore.EmbedFunc) (vectorstore.Handle, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

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

	// Rebuild is destructive-and-replace: the table is dropped and
	// recreated so no rows from a previous document survive.
	if _, err := s.db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", vectorstore.ErrPersistence, err)
	}
	if _, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", vectorstore.ErrPersistence, err)
	}

	if len(chunks) > 0 {
		docs := make([]Document, len(chunks))
		for i, c := range chunks {
			docs[i] = Document{
				Content:    c.Content,
				Embedding:  vectors[i],
				SourceFile: c.SourceFilename,
				PageNumber: c.PageNumber,
				ChunkID:    c.ChunkID,
			}
		}
		if _, err := s.db.NewInsert().Model(&docs).Exec(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", vectorstore.ErrPersistence, err)
		}
	}

	return &Table{db: s.db, count: len(chunks)}, nil
}

func (s *Store) Teardown(ctx context.Context) error {
	if _, err := s.db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", vectorstore.ErrTeardown, err)
	}
	return nil
}

// Table is a handle to one fully built documents table.
type Table struct {
	mu    sync.RWMutex
	db    *bun.DB
	count int
}

func (t *Table) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.db == nil {
		return nil, vectorstore.ErrIndexClosed
	}

	if k > t.count {
		k = t.count
	}
	if k <= 0 {
		return nil, nil
	}

	var docs []Document
	err := t.db.NewSelect().
		Model(&docs).
		Column("content", "source_file", "page_number", "chunk_id").
		ColumnExpr("embedding <-> ? AS distance", vector).
		OrderExpr("embedding <-> ?", vector).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	scored := make([]models.ScoredChunk, len(docs))
	for i, doc := range docs {
		scored[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				Content:        doc.Content,
				PageNumber:     doc.PageNumber,
				ChunkID:        doc.ChunkID,
				SourceFilename: doc.SourceFile,
			},
			// lower distance is better, flip the sign so callers can keep
			// the higher-is-better convention
			Score: float32(-doc.Distance),
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

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.db = nil
	return nil
}
