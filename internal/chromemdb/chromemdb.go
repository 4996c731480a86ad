package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"rag-chatbot/internal/models"
)

const compress = false

// Index wraps a chromem-go collection as the persistent vector store for
// document chunks. Writes are serialized by chromem internally; Upsert and
// Query are safe to call concurrently.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// New opens (or creates) the collection. With inMemory the index lives only
// for the process; otherwise it is persisted under dbPath and survives
// restarts.
func New(dbPath, collectionName string, inMemory bool) (*Index, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &Index{db: db, collection: collection}, nil
}

// ChunkID builds the stable id of a chunk, "{document_id}_{chunk_index}".
func ChunkID(documentID int64, chunkIndex int) string {
	return fmt.Sprintf("%d_%d", documentID, chunkIndex)
}

// Upsert stores the given chunks, overwriting any existing entry with the
// same id.
func (ix *Index) Upsert(ctx context.Context, chunks []models.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Embedding: chunk.Embedding,
			Metadata:  encodeMetadata(chunk.Metadata),
		}
	}
	if err := ix.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns up to k chunks nearest to embedding, most similar first.
// k is clamped to the collection's cardinality so the backend is never asked
// for more neighbors than exist; an empty index yields an empty result.
// documentID > 0 restricts the search to that document's chunks.
func (ix *Index) Query(ctx context.Context, embedding []float32, k int, documentID int64) ([]models.RetrievedChunk, error) {
	if k < 1 {
		k = 1
	}
	total := ix.collection.Count()
	if total == 0 {
		return nil, nil
	}
	if k > total {
		k = total
	}

	var where map[string]string
	if documentID > 0 {
		n := ix.CountDocument(ctx, documentID)
		if n == 0 {
			return nil, nil
		}
		if k > n {
			k = n
		}
		where = map[string]string{"document_id": strconv.FormatInt(documentID, 10)}
	}

	results, err := ix.collection.QueryEmbedding(ctx, embedding, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	chunks := make([]models.RetrievedChunk, len(results))
	for i, res := range results {
		chunks[i] = models.RetrievedChunk{
			ID:         res.ID,
			Text:       res.Content,
			Metadata:   decodeMetadata(res.Metadata),
			Similarity: res.Similarity,
		}
	}
	return chunks, nil
}

// Count reports the number of indexed chunks.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// CountDocument reports how many chunks one document has in the index.
// Chunk ids are dense per document ("{id}_0", "{id}_1", ...) and never
// reused without a purge, so probing by id is exact.
func (ix *Index) CountDocument(ctx context.Context, documentID int64) int {
	n := 0
	for {
		if _, err := ix.collection.GetByID(ctx, ChunkID(documentID, n)); err != nil {
			return n
		}
		n++
	}
}

// DeleteDocument removes all chunks of one document. Called by the
// persistence layer when a document is deleted.
func (ix *Index) DeleteDocument(ctx context.Context, documentID int64) error {
	where := map[string]string{"document_id": strconv.FormatInt(documentID, 10)}
	if err := ix.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete document %d chunks: %w", documentID, err)
	}
	return nil
}

func encodeMetadata(m models.ChunkMetadata) map[string]string {
	return map[string]string{
		"document_id": strconv.FormatInt(m.DocumentID, 10),
		"chunk_index": strconv.Itoa(m.ChunkIndex),
		"page_number": strconv.Itoa(m.PageNumber),
		"filename":    m.Filename,
	}
}

func decodeMetadata(m map[string]string) models.ChunkMetadata {
	documentID, _ := strconv.ParseInt(m["document_id"], 10, 64)
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])
	pageNumber, _ := strconv.Atoi(m["page_number"])
	return models.ChunkMetadata{
		DocumentID: documentID,
		ChunkIndex: chunkIndex,
		PageNumber: pageNumber,
		Filename:   m["filename"],
	}
}
