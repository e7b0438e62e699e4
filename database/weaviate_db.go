package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/tieubaoca/docrag-be/config"
	"github.com/tieubaoca/docrag-be/types"
)

const BATCH_SIZE = 200

var (
	CHUNK_CLASS        = "DocumentChunk"
	CHUNK_CLASS_OBJECT = &models.Class{
		Class: CHUNK_CLASS,
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "docName", DataType: []string{"text"}},
			{Name: "pageNum", DataType: []string{"int"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "contentType", DataType: []string{"text"}},
			{Name: "wordCount", DataType: []string{"int"}},
			{Name: "tokenCount", DataType: []string{"int"}},
			{Name: "tags", DataType: []string{"text[]"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		VectorIndexType: "hnsw",
	}
)

type WeaviateStore struct {
	client *weaviate.Client
}

func NewWeaviateStore(cfg config.WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	weaviateCfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		weaviateCfg.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
		weaviateCfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	CHUNK_CLASS_OBJECT.Vectorizer = cfg.Text2Vec
	CHUNK_CLASS_OBJECT.ModuleConfig = cfg.ModuleConfig
	client, err := weaviate.NewClient(weaviateCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %v", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	hasChunkClass := false
	for _, class := range schema.Classes {
		if class.Class == CHUNK_CLASS {
			hasChunkClass = true
			break
		}
	}
	if !hasChunkClass {
		err = client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create DocumentChunk class: %v", err)
		}
	}
	return &WeaviateStore{
		client: client,
	}, nil
}

func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(CHUNK_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete DocumentChunk class: %v", err)
	}

	err = s.client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create DocumentChunk class: %v", err)
	}
	return nil
}

func chunkProperties(chunk types.TextChunk, tags []string) map[string]interface{} {
	return map[string]interface{}{
		"chunkId":     chunk.ChunkID,
		"content":     chunk.Text,
		"docName":     chunk.DocName,
		"pageNum":     chunk.PageNum,
		"chunkIndex":  chunk.ChunkIndex,
		"contentType": string(chunk.ContentType),
		"wordCount":   chunk.WordCount,
		"tokenCount":  chunk.TokenCount,
		"tags":        tags,
		"createdAt":   time.Now().Unix(),
	}
}

func (s *WeaviateStore) UpsertChunk(ctx context.Context, chunk types.TextChunk, tags []string) error {
	result, err := s.client.Data().Creator().
		WithClassName(CHUNK_CLASS).
		WithProperties(chunkProperties(chunk, tags)).
		Do(ctx)
	if err != nil {
		return err
	}
	log.Println("UpsertChunk result:", result.Object.ID)
	return nil
}

func (s *WeaviateStore) BatchInsertChunks(ctx context.Context, chunks []types.TextChunk, tags []string) error {
	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			batcher = batcher.WithObjects(&models.Object{
				Class:      CHUNK_CLASS,
				Properties: chunkProperties(chunks[j], tags),
			})
		}

		if _, err := batcher.Do(ctx); err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %v", i, end, err)
		}
		log.Printf("Inserted batch %d-%d of %d chunks", i, end, total)
	}
	return nil
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, docName string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(CHUNK_CLASS).
		WithWhere(filters.Where().
			WithPath([]string{"docName"}).
			WithOperator(filters.Equal).
			WithValueText(docName)).
		Do(ctx)
	return err
}

func (s *WeaviateStore) SearchSimilar(ctx context.Context, queries []string, limit int) ([]types.ChunkHit, error) {
	return s.SearchSimilarWithFilter(ctx, queries, ChunkFilter{}, limit)
}

func (s *WeaviateStore) SearchSimilarWithFilter(ctx context.Context, queries []string, filter ChunkFilter, limit int) ([]types.ChunkHit, error) {
	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "content"},
		{Name: "docName"},
		{Name: "pageNum"},
		{Name: "chunkIndex"},
		{Name: "contentType"},
		{Name: "wordCount"},
		{Name: "tokenCount"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts(queries).
		WithCertainty(0.7)
	where := buildChunkFilter(filter)

	getBuilder := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithFields(fields...).
		WithNearText(nearText)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}
	if where != nil {
		getBuilder = getBuilder.WithWhere(where)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("search failed: %v", result.Errors[0].Message)
	}

	var hits []types.ChunkHit
	if data, ok := result.Data["Get"].(map[string]interface{})[CHUNK_CLASS].([]interface{}); ok {
		for _, item := range data {
			raw, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			hit := types.ChunkHit{Chunk: parseChunk(raw)}
			if additional, ok := raw["_additional"].(map[string]interface{}); ok {
				if distance, ok := additional["distance"].(float64); ok {
					hit.Distance = float32(distance)
				}
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func buildChunkFilter(filter ChunkFilter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder
	if filter.DocName != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"docName"}).
			WithOperator(filters.Equal).
			WithValueText(filter.DocName))
	}
	if filter.ContentType != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"contentType"}).
			WithOperator(filters.Equal).
			WithValueText(string(filter.ContentType)))
	}
	if len(filter.Tags) > 0 {
		operands = append(operands, filters.Where().
			WithPath([]string{"tags"}).
			WithOperator(filters.ContainsAny).
			WithValueText(filter.Tags...))
	}
	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}

func parseChunk(raw map[string]interface{}) types.TextChunk {
	chunk := types.TextChunk{}
	if v, ok := raw["chunkId"].(string); ok {
		chunk.ChunkID = v
	}
	if v, ok := raw["content"].(string); ok {
		chunk.Text = v
	}
	if v, ok := raw["docName"].(string); ok {
		chunk.DocName = v
	}
	if v, ok := raw["pageNum"].(float64); ok {
		chunk.PageNum = int(v)
	}
	if v, ok := raw["chunkIndex"].(float64); ok {
		chunk.ChunkIndex = int(v)
	}
	if v, ok := raw["contentType"].(string); ok {
		chunk.ContentType = types.ContentType(v)
	}
	if v, ok := raw["wordCount"].(float64); ok {
		chunk.WordCount = int(v)
	}
	if v, ok := raw["tokenCount"].(float64); ok {
		chunk.TokenCount = int(v)
	}
	return chunk
}
