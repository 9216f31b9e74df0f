package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
	"document-qa/internal/session"
	"document-qa/internal/vectorstore"
)

type fakeHandle struct {
	results []models.ScoredChunk
	err     error
}

func (f *fakeHandle) Search(context.Context, []float32, int) ([]models.ScoredChunk, error) {
	return f.results, f.err
}
func (f *fakeHandle) Len() int     { return len(f.results) }
func (f *fakeHandle) Close() error { return nil }

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 2, 3}, f.err
}

type fakeGenerator struct {
	fragments []string
	err       error
	prompt    string
	system    string
}

func (f *fakeGenerator) Stream(ctx context.Context, system, prompt string, fn func(context.Context, []byte) error) error {
	f.system = system
	f.prompt = prompt
	for _, frag := range f.fragments {
		if err := fn(ctx, []byte(frag)); err != nil {
			return err
		}
	}
	return f.err
}

func sessionWith(h vectorstore.Handle) *session.Session {
	s := session.New(4)
	if h != nil {
		s.Publish(h)
	}
	return s
}

func collect(t *testing.T, ch <-chan Fragment) []Fragment {
	t.Helper()
	var out []Fragment
	timeout := time.After(5 * time.Second)
	for {
		select {
		case frag, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, frag)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func TestAnswerNoActiveIndex(t *testing.T) {
	r := NewRAG(sessionWith(nil), &fakeEmbedder{}, &fakeGenerator{})

	_, err := r.Answer(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoActiveIndex)
}

func TestAnswerStreamsFragments(t *testing.T) {
	handle := &fakeHandle{results: []models.ScoredChunk{
		{Chunk: models.Chunk{Content: "jupiter is the largest planet", ChunkID: 2}, Score: 0.9},
		{Chunk: models.Chunk{Content: "the solar system has eight planets", ChunkID: 1}, Score: 0.8},
	}}
	gen := &fakeGenerator{fragments: []string{"Jupiter", " is", " the largest."}}
	r := NewRAG(sessionWith(handle), &fakeEmbedder{}, gen)

	ch, err := r.Answer(context.Background(), "which planet is the largest?")
	require.NoError(t, err)

	fragments := collect(t, ch)
	require.Len(t, fragments, 3)

	var answer strings.Builder
	for _, frag := range fragments {
		require.NoError(t, frag.Err)
		answer.WriteString(frag.Content)
	}
	assert.Equal(t, "Jupiter is the largest.", answer.String())

	assert.Equal(t, models.RAGSystemPrompt, gen.system)
	assert.Contains(t, gen.prompt, "jupiter is the largest planet")
	assert.Contains(t, gen.prompt, "which planet is the largest?")
}

func TestAnswerGeneratorErrorIsTerminalFragment(t *testing.T) {
	handle := &fakeHandle{}
	gen := &fakeGenerator{fragments: []string{"partial"}, err: errors.New("model unavailable")}
	r := NewRAG(sessionWith(handle), &fakeEmbedder{}, gen)

	ch, err := r.Answer(context.Background(), "query")
	require.NoError(t, err)

	fragments := collect(t, ch)
	require.Len(t, fragments, 2)
	assert.Equal(t, "partial", fragments[0].Content)
	require.Error(t, fragments[1].Err, "stream must end with a terminal error fragment")
}

func TestAnswerEmbedFailure(t *testing.T) {
	r := NewRAG(sessionWith(&fakeHandle{}), &fakeEmbedder{err: errors.New("embedder down")}, &fakeGenerator{})

	_, err := r.Answer(context.Background(), "query")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoActiveIndex)
}

func TestAnswerSearchFailure(t *testing.T) {
	handle := &fakeHandle{err: vectorstore.ErrIndexClosed}
	r := NewRAG(sessionWith(handle), &fakeEmbedder{}, &fakeGenerator{})

	_, err := r.Answer(context.Background(), "query")
	assert.ErrorIs(t, err, vectorstore.ErrIndexClosed)
}

func TestAnswerCancelledMidStream(t *testing.T) {
	handle := &fakeHandle{}
	gen := &fakeGenerator{fragments: make([]string, 100)}
	for i := range gen.fragments {
		gen.fragments[i] = "x"
	}
	r := NewRAG(sessionWith(handle), &fakeEmbedder{}, gen)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Answer(ctx, "query")
	require.NoError(t, err)

	// consume one fragment, then walk away like a disconnected client
	<-ch
	cancel()

	fragments := collect(t, ch)
	for _, frag := range fragments {
		assert.NoError(t, frag.Err, "cancellation must not surface a terminal error")
	}
}
