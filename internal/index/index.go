package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/ingest"
)

// NoDocumentsMessage is returned as the sole context block when the store
// holds no vectors, so downstream generation can tell the model the corpus is
// empty instead of failing the request.
const NoDocumentsMessage = "No documents loaded in vector store."

// Embeddings is the embedding surface the index needs. *Embedder satisfies it.
type Embeddings interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index ties embedding generation to vector storage. It owns the write path
// for document chunks and the semantic read path for questions.
type Index struct {
	embedder Embeddings
	store    VectorStore
}

// New creates an Index over the given embedder and store.
func New(embedder Embeddings, store VectorStore) *Index {
	return &Index{embedder: embedder, store: store}
}

// Add embeds every chunk and stores the resulting vectors under the given
// document ID. Returns the number of chunks stored. Nothing is written when
// any embedding fails.
func (ix *Index) Add(ctx context.Context, documentID string, chunks []ingest.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	records := make([]VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = VectorRecord{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Source:     c.Source,
			FileType:   c.FileType,
			Uploaded:   c.Uploaded,
			ChunkText:  c.Text,
			Embedding:  vectors[i],
		}
	}

	if err := ix.store.Insert(ctx, records); err != nil {
		return 0, fmt.Errorf("storing %d vectors: %w", len(records), err)
	}
	return len(records), nil
}

// Retrieve embeds the question and returns the top-K most similar chunks with
// their scores. An empty store yields no results and no error.
func (ix *Index) Retrieve(ctx context.Context, question string, topK int) ([]ScoredChunk, error) {
	vec, err := ix.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	return ix.store.Search(ctx, vec, topK)
}

// Query returns the chunk texts most relevant to the question. When the store
// is empty it returns NoDocumentsMessage as the single context block rather
// than an error or an empty slice.
func (ix *Index) Query(ctx context.Context, question string, topK int) ([]string, error) {
	count, err := ix.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting vectors: %w", err)
	}
	if count == 0 {
		return []string{NoDocumentsMessage}, nil
	}

	scored, err := ix.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return []string{NoDocumentsMessage}, nil
	}

	texts := make([]string, len(scored))
	for i, s := range scored {
		texts[i] = s.ChunkText
	}
	return texts, nil
}

// Count reports how many vectors the index holds.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}
