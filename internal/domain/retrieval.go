package domain

// RetrievalMatch is one similarity-search result, ordered by descending score
// within a result set. Content carries the stored chunk text; raw vector
// values are never returned to callers.
type RetrievalMatch struct {
	ID      string
	Score   float64
	Content string
}

// Chunk is a non-empty line-delimited substring of a source document, paired
// with its embedding and a generated unique identifier at ingestion time.
// Chunks are immutable once upserted.
type Chunk struct {
	ID        string
	Content   string
	Embedding []float32
}
