package database

import (
	"context"

	"github.com/tieubaoca/docrag-be/types"
)

// ChunkFilter narrows retrieval to a document or tag set. Zero values mean
// no filtering on that field.
type ChunkFilter struct {
	DocName     string
	ContentType types.ContentType
	Tags        []string
}

// VectorStore is the retrieval index the pipeline output feeds into.
type VectorStore interface {
	// Indexing
	UpsertChunk(ctx context.Context, chunk types.TextChunk, tags []string) error
	BatchInsertChunks(ctx context.Context, chunks []types.TextChunk, tags []string) error
	DeleteDocument(ctx context.Context, docName string) error

	// Retrieval
	SearchSimilar(ctx context.Context, queries []string, limit int) ([]types.ChunkHit, error)
	SearchSimilarWithFilter(ctx context.Context, queries []string, filter ChunkFilter, limit int) ([]types.ChunkHit, error)
}
