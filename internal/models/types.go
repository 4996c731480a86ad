package models

// PageUnknown is the page number recorded for formats without page structure.
const PageUnknown = 0

// Page is one page of extracted document text. Page numbers are 1-based and
// sequential for paged formats; PageUnknown otherwise. Text may be empty.
type Page struct {
	Number int
	Text   string
}

// Chunk is a bounded slice of a single page's text, the unit of embedding
// and retrieval. Chunks never span pages.
type Chunk struct {
	Text       string
	PageNumber int
}

// ChunkMetadata travels with every chunk stored in the vector index.
type ChunkMetadata struct {
	DocumentID int64
	ChunkIndex int
	PageNumber int
	Filename   string
}

// IndexedChunk is the write-once entry owned by the vector index.
// ID is "{document_id}_{chunk_index}".
type IndexedChunk struct {
	ID        string
	Embedding []float32
	Text      string
	Metadata  ChunkMetadata
}

// RetrievedChunk is a point-in-time snapshot of an IndexedChunk returned by
// similarity search.
type RetrievedChunk struct {
	ID         string
	Text       string
	Metadata   ChunkMetadata
	Similarity float32
}

// ChunkRecord is what ingestion hands back to the caller for structured
// persistence, one per indexed chunk.
type ChunkRecord struct {
	Text       string
	PageNumber int
	ChunkIndex int
}

// Source is a cited excerpt backing an answer.
type Source struct {
	Text     string
	Metadata ChunkMetadata
}

// AnswerResult is the outcome of one question, most-similar source first.
type AnswerResult struct {
	Response string
	Sources  []Source
}
