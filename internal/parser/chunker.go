package parser

import (
	"errors"
	"fmt"
	"strings"

	"document-qa/internal/models"
)

// ErrInvalidConfig means the chunking parameters are out of range.
var ErrInvalidConfig = errors.New("invalid chunking config")

// SplitPages splits extracted page texts into overlapping fixed-size
// chunks. Chunking is page-bounded and deterministic: identical input
// always yields identical chunks. ChunkID is the global position of the
// chunk within the document, starting at 1.
func SplitPages(pages []string, source string, chunkSize, overlap int) ([]models.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d", ErrInvalidConfig, overlap, chunkSize)
	}

	var chunks []models.Chunk
	seq := 1
	for pageIdx, page := range pages {
		for _, text := range chunkContent(page, chunkSize, overlap) {
			chunks = append(chunks, models.Chunk{
				Content:        text,
				PageNumber:     pageIdx + 1,
				ChunkID:        seq,
				SourceFilename: source,
			})
			seq++
		}
	}
	return chunks, nil
}

// chunk content into chunks with maxChars and overlapChars
func chunkContent(content string, maxChars, overlapChars int) []string {
	content = strings.TrimSpace(content)
	contentLen := len(content)
	if contentLen == 0 {
		return nil
	}

	// If content is shorter than maxChars, return it as a single chunk
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		// Find a clean break point (end of a word or sentence) if possible,
		// looking back within the last 10% of the chunk
		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		chunk := strings.TrimSpace(content[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Fixed stride keeps chunk offsets reproducible regardless of the
		// break point chosen above
		start += maxChars - overlapChars
	}

	return chunks
}
