// Package ingest drives the document ingestion pipeline: teardown of the
// previous index, extraction, chunking and rebuild of the vector store.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/helper"
	"document-qa/internal/parser"
	"document-qa/internal/session"
	"document-qa/internal/vectorstore"
)

// Result is returned to the caller after a successful ingestion.
type Result struct {
	Filename   string
	ChunkCount int
}

// Coordinator owns the lifecycle of the current index. At most one
// ingestion runs at a time; the session is cleared before the old index is
// torn down and republished only once the new one is fully queryable, so
// concurrent queries never observe a half-built index.
type Coordinator struct {
	mu        sync.Mutex
	store     vectorstore.Store
	session   *session.Session
	embed     vectorstore.EmbedFunc
	ragCfg    config.RAGConfig
	uploadDir string
}

func NewCoordinator(store vectorstore.Store, sess *session.Session, embed vectorstore.EmbedFunc, ragCfg config.RAGConfig, uploadDir string) *Coordinator {
	return &Coordinator{
		store:     store,
		session:   sess,
		embed:     embed,
		ragCfg:    ragCfg,
		uploadDir: uploadDir,
	}
}

// Ingest replaces the active index with one built from the uploaded
// document. On any failure after teardown has started the session is left
// absent; the caller must retry with a fresh upload.
func (c *Coordinator) Ingest(ctx context.Context, filename string, data []byte) (*Result, error) {
	// Fail fast before touching shared state.
	if !parser.SupportedFormat(filename) {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedFormat, filepath.Ext(filename))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log.Info().Str("filename", filename).Msg("Ingestion started, tearing down previous index")

	if prev := c.session.Clear(); prev != nil {
		if err := prev.Close(); err != nil {
			log.Warn().Err(err).Msg("Error releasing previous index handle")
		}
	}
	if err := c.store.Teardown(ctx); err != nil {
		// Stale storage must not be built over; the upload is discarded and
		// the session stays absent until a retry succeeds.
		log.Error().Err(err).Msg("Error tearing down previous index")
		return nil, err
	}

	if err := c.stageUpload(filename, data); err != nil {
		log.Error().Err(err).Msg("Error staging uploaded document")
		return nil, fmt.Errorf("%w: %v", vectorstore.ErrPersistence, err)
	}

	pages, err := parser.ExtractPages(filename, data)
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("Error extracting document")
		return nil, err
	}

	chunks, err := parser.SplitPages(pages, filename, c.ragCfg.ChunkSize, c.ragCfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	handle, err := c.store.Rebuild(ctx, chunks, c.embed)
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("Error rebuilding index")
		return nil, err
	}

	c.session.Publish(handle)
	log.Info().Str("filename", filename).Int("chunks", len(chunks)).Msg("Ingestion complete")

	return &Result{Filename: filename, ChunkCount: len(chunks)}, nil
}

// stageUpload keeps exactly the most recent source document in the upload
// directory.
func (c *Coordinator) stageUpload(filename string, data []byte) error {
	if err := helper.CreateFolder(c.uploadDir); err != nil {
		return err
	}
	if err := helper.ClearFolder(c.uploadDir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.uploadDir, filepath.Base(filename)), data, 0o644)
}
