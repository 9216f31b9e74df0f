package models

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content        string
	PageNumber     int
	ChunkID        int
	SourceFilename string
}

// ScoredChunk is a chunk returned from a similarity search.
// Higher score means more relevant.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}
