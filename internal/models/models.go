package models

// Chunk represents a bounded slice of a document's extracted text
type Chunk struct {
	SourceID string
	Source   string
	Text     string
	Offset   int
	Seq      int
}

// EmbeddedChunk pairs a chunk with its embedding vector
type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// ScoredChunk is a similarity search hit
type ScoredChunk struct {
	Chunk
	Similarity float32
}

// Turn is one question/answer exchange in the conversation log
type Turn struct {
	Question string
	Answer   string
}

// UploadedFile carries a named payload across the ingestion boundary,
// already read from whatever transport delivered it
type UploadedFile struct {
	Name string
	Data []byte
}
