package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/docrag-be/database"
	"github.com/tieubaoca/docrag-be/types"
)

const defaultTopK = 5

// QueryService answers questions over the indexed corpus: retrieve the
// closest chunks, then ask the model to answer from them.
type QueryService struct {
	store database.VectorStore
	ai    AIService
}

func NewQueryService(store database.VectorStore, ai AIService) *QueryService {
	return &QueryService{
		store: store,
		ai:    ai,
	}
}

func (s *QueryService) Search(ctx context.Context, req types.SearchRequest) ([]types.ChunkHit, error) {
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("no queries provided")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultTopK
	}
	filter := database.ChunkFilter{
		DocName: req.DocName,
		Tags:    req.Tags,
	}
	return s.store.SearchSimilarWithFilter(ctx, req.Queries, filter, limit)
}

func (s *QueryService) Ask(ctx context.Context, req types.QueryRequest) (*types.QueryResponse, error) {
	hits, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := s.ai.Chat(ctx, buildAnswerPrompt(req.Question, hits), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %v", err)
	}

	return &types.QueryResponse{
		Answer:  answer,
		Sources: hits,
	}, nil
}

// AskStream streams the generated answer token by token and returns the
// retrieved sources once the stream is done.
func (s *QueryService) AskStream(ctx context.Context, req types.QueryRequest, handler types.StreamHandler) ([]types.ChunkHit, error) {
	hits, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ai.ChatStream(ctx, buildAnswerPrompt(req.Question, hits), nil, handler); err != nil {
		return nil, fmt.Errorf("failed to stream answer: %v", err)
	}
	return hits, nil
}

func (s *QueryService) retrieve(ctx context.Context, req types.QueryRequest) ([]types.ChunkHit, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is empty")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	filter := database.ChunkFilter{Tags: req.Tags}
	hits, err := s.store.SearchSimilarWithFilter(ctx, []string{req.Question}, filter, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %v", err)
	}
	return hits, nil
}

func buildAnswerPrompt(question string, hits []types.ChunkHit) string {
	var b strings.Builder
	b.WriteString("Document excerpts:\n\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "[%d] %s, page %d:\n%s\n\n", i+1, hit.Chunk.DocName, hit.Chunk.PageNum, hit.Chunk.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
