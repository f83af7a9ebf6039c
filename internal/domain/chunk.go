package domain

// ChunkMetadata identifies the origin of a stored chunk.
type ChunkMetadata struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
}

// Chunk is a bounded contiguous slice of a document's text, the unit of
// embedding and retrieval. Identity is (DocumentID, ChunkIndex) and must be
// unique in the store. Chunks are never mutated in place; content changes go
// through remove-then-add.
type Chunk struct {
	Metadata  ChunkMetadata
	Content   string
	Embedding []float32
}

// SearchResult is a chunk returned by a nearest-neighbor query together with
// its cosine distance from the query vector. Lower distance means more
// similar; 0 is identical direction and 2 is the upper bound.
type SearchResult struct {
	Content  string
	Metadata ChunkMetadata
	Distance float64
}
