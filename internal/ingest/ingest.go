package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/chromemdb"
	"rag-chatbot/internal/models"
)

// Extractor produces page-indexed text from raw document bytes.
type Extractor interface {
	Extract(data []byte, filename string) ([]models.Page, error)
}

// Chunker splits pages into bounded, overlapping chunks.
type Chunker interface {
	Split(pages []models.Page) []models.Chunk
}

// Embedder maps chunk texts to vectors, order preserving.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index accepts batches of chunks keyed by id.
type Index interface {
	Upsert(ctx context.Context, chunks []models.IndexedChunk) error
}

// Pipeline runs extract -> chunk -> embed -> index for one uploaded
// document. The single Upsert call is the only index-mutating step, so a
// document is either fully indexed or not at all.
type Pipeline struct {
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	index     Index
}

func NewPipeline(extractor Extractor, chunker Chunker, embedder Embedder, index Index) *Pipeline {
	return &Pipeline{extractor: extractor, chunker: chunker, embedder: embedder, index: index}
}

// Ingest indexes one document and returns the per-chunk records the caller
// persists as structured metadata. A document that yields no chunks returns
// an empty result without touching the index. Extraction, embedding, and
// index failures are fatal for the document.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, documentID int64, filename string) ([]models.ChunkRecord, error) {
	pages, err := p.extractor.Extract(data, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filename, err)
	}

	chunks := p.chunker.Split(pages)
	if len(chunks) == 0 {
		log.Info().Str("filename", filename).Msg("document produced no chunks")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]models.IndexedChunk, len(chunks))
	records := make([]models.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		entries[i] = models.IndexedChunk{
			ID:        chromemdb.ChunkID(documentID, i),
			Embedding: vectors[i],
			Text:      chunk.Text,
			Metadata: models.ChunkMetadata{
				DocumentID: documentID,
				ChunkIndex: i,
				PageNumber: chunk.PageNumber,
				Filename:   filename,
			},
		}
		records[i] = models.ChunkRecord{
			Text:       chunk.Text,
			PageNumber: chunk.PageNumber,
			ChunkIndex: i,
		}
	}

	if err := p.index.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	log.Info().Str("filename", filename).Int64("document_id", documentID).Int("chunks", len(records)).Msg("document ingested")
	return records, nil
}
