package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPagesRejectsInvalidConfig(t *testing.T) {
	pages := []string{"some text"}

	_, err := SplitPages(pages, "doc.txt", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = SplitPages(pages, "doc.txt", 100, -1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = SplitPages(pages, "doc.txt", 100, 100)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = SplitPages(pages, "doc.txt", 100, 150)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSplitPagesEmptyInput(t *testing.T) {
	chunks, err := SplitPages(nil, "doc.txt", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = SplitPages([]string{"", "   ", "\n"}, "doc.txt", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitPagesDeterministic(t *testing.T) {
	pages := []string{
		strings.Repeat("the quick brown fox jumps over the lazy dog. ", 60),
		strings.Repeat("pack my box with five dozen liquor jugs. ", 40),
		strings.Repeat("sphinx of black quartz judge my vow. ", 50),
	}

	first, err := SplitPages(pages, "doc1.pdf", 1024, 80)
	require.NoError(t, err)
	second, err := SplitPages(pages, "doc1.pdf", 1024, 80)
	require.NoError(t, err)

	require.Equal(t, first, second)
	assert.Greater(t, len(first), 3)
}

func TestSplitPagesSequenceAndPages(t *testing.T) {
	pages := []string{
		strings.Repeat("alpha beta gamma delta ", 30),
		strings.Repeat("epsilon zeta eta theta ", 30),
	}

	chunks, err := SplitPages(pages, "doc.txt", 200, 40)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, i+1, c.ChunkID, "chunk ids must be sequential")
		assert.Equal(t, "doc.txt", c.SourceFilename)
		assert.LessOrEqual(t, len(c.Content), 200)
	}
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 2, chunks[len(chunks)-1].PageNumber)
}

func TestSplitPagesShortPageSingleChunk(t *testing.T) {
	chunks, err := SplitPages([]string{"short text"}, "doc.txt", 1024, 80)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Content)
}

func TestChunkContentOverlap(t *testing.T) {
	content := strings.Repeat("word ", 100) // 500 chars
	chunks := chunkContent(content, 100, 20)

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		// each chunk starts a fixed stride after the previous one, so
		// consecutive chunks share text from the overlap region
		assert.True(t, strings.HasPrefix(chunks[i], "word") || strings.Contains(chunks[i-1], chunks[i][:4]))
	}
}
