package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	"document-qa/internal/session"
)

// ErrNoActiveIndex means no document has been ingested yet.
var ErrNoActiveIndex = errors.New("no document indexed")

// Embedder maps a query to the same vector space used at indexing time.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a streamed chat completion.
type Generator interface {
	Stream(ctx context.Context, system, prompt string, fn func(ctx context.Context, chunk []byte) error) error
}

// Fragment is one piece of a streamed answer. A fragment with Err set is
// terminal: the stream ends after it.
type Fragment struct {
	Content string
	Err     error
}

// RAG answers queries by retrieving relevant chunks from the active index
// and conditioning generation on them.
type RAG struct {
	session   *session.Session
	embedder  Embedder
	generator Generator
}

func NewRAG(sess *session.Session, embedder Embedder, generator Generator) *RAG {
	return &RAG{session: sess, embedder: embedder, generator: generator}
}

// Answer streams the generated answer for the query. The active index is
// checked once, up front; a teardown racing with an in-flight stream
// surfaces as a generation error fragment instead. Fragments are forwarded
// as the model produces them, without buffering the full answer. The
// channel is closed when generation finishes, fails, or ctx is cancelled.
func (r *RAG) Answer(ctx context.Context, query string) (<-chan Fragment, error) {
	handle, ok := r.session.Get()
	if !ok {
		return nil, ErrNoActiveIndex
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := handle.Search(ctx, queryEmbedding, r.session.TopK())
	if err != nil {
		return nil, err
	}

	var contextText strings.Builder
	for _, res := range results {
		contextText.WriteString(res.Chunk.Content + "\n\n")
	}
	prompt := fmt.Sprintf(models.RAGPromptTemplate, contextText.String(), query)

	log.Debug().Int("retrieved", len(results)).Msg("Streaming answer")

	out := make(chan Fragment)
	go func() {
		defer close(out)
		err := r.generator.Stream(ctx, models.RAGSystemPrompt, prompt, func(fnCtx context.Context, chunk []byte) error {
			select {
			case out <- Fragment{Content: string(chunk)}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			select {
			case out <- Fragment{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}
