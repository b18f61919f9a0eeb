package cache

import (
	"context"
	"crypto/sha1"
	"fmt"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusCollection = "semantic_cache"
	milvusDim        = 256
	milvusMetric     = entity.L2
)

// MilvusIndex is the nearest-neighbor-at-scale VectorIndex backend, used in
// place of LocalIndex when the cache needs to serve a query volume a linear
// scan can't keep up with. Candidates it returns are still reranked by
// Service's exact token-overlap similarity, so the embedding only needs to
// be good enough to narrow the candidate set.
type MilvusIndex struct {
	c client.Client
}

// NewMilvusIndex connects to a Milvus instance at addr and ensures the
// semantic_cache collection exists.
func NewMilvusIndex(ctx context.Context, addr string) (*MilvusIndex, error) {
	c, err := client.NewGrpcClient(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("cache: connecting to milvus: %w", err)
	}
	idx := &MilvusIndex{c: c}
	if err := idx.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *MilvusIndex) ensureCollection(ctx context.Context) error {
	exists, err := idx.c.HasCollection(ctx, milvusCollection)
	if err != nil {
		return fmt.Errorf("cache: checking milvus collection: %w", err)
	}
	if exists {
		return idx.c.LoadCollection(ctx, milvusCollection, false)
	}

	schema := &entity.Schema{
		CollectionName: milvusCollection,
		Description:    "semantic cache entries scoped by model_id",
		Fields: []*entity.Field{
			{Name: "id", DataType: entity.FieldTypeVarChar, PrimaryKey: true, AutoID: false, TypeParams: map[string]string{"max_length": "36"}},
			{Name: "model_id", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "36"}},
			{Name: "query_text", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "4096"}},
			{Name: "llm_response", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "16384"}},
			{Name: "embedding", DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": fmt.Sprintf("%d", milvusDim)}},
		},
	}
	if err := idx.c.CreateCollection(ctx, schema, 2); err != nil {
		return fmt.Errorf("cache: creating milvus collection: %w", err)
	}
	idxParams, err := entity.NewIndexIvfFlat(milvusMetric, 128)
	if err != nil {
		return fmt.Errorf("cache: building milvus index params: %w", err)
	}
	if err := idx.c.CreateIndex(ctx, milvusCollection, "embedding", idxParams, false); err != nil {
		return fmt.Errorf("cache: creating milvus index: %w", err)
	}
	return idx.c.LoadCollection(ctx, milvusCollection, false)
}

// embed produces a cheap, deterministic bag-of-hashed-tokens vector. It is
// not a learned embedding; it exists only to narrow Milvus's candidate set
// before Service reranks with exact token overlap.
func embed(text string) []float32 {
	vec := make([]float32, milvusDim)
	for token := range tokenize(text) {
		sum := sha1.Sum([]byte(token))
		bucket := int(sum[0])<<8|int(sum[1])
		vec[bucket%milvusDim]++
	}
	return vec
}

// Insert implements VectorIndex.
func (idx *MilvusIndex) Insert(ctx context.Context, e Entry) error {
	ids := entity.NewColumnVarChar("id", []string{e.QueryID.String()})
	modelIDs := entity.NewColumnVarChar("model_id", []string{e.ModelID.String()})
	queries := entity.NewColumnVarChar("query_text", []string{e.QueryText})
	responses := entity.NewColumnVarChar("llm_response", []string{e.LLMResponse})
	embeddings := entity.NewColumnFloatVector("embedding", milvusDim, [][]float32{embed(e.QueryText)})

	_, err := idx.c.Insert(ctx, milvusCollection, "", ids, modelIDs, queries, responses, embeddings)
	if err != nil {
		return fmt.Errorf("cache: inserting into milvus: %w", err)
	}
	return nil
}

// Search implements VectorIndex.
func (idx *MilvusIndex) Search(ctx context.Context, modelID uuid.UUID, query string, k int) ([]Entry, error) {
	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("cache: building milvus search params: %w", err)
	}
	results, err := idx.c.Search(
		ctx, milvusCollection, nil,
		fmt.Sprintf("model_id == \"%s\"", modelID.String()),
		[]string{"query_text", "llm_response", "model_id"},
		[]entity.Vector{entity.FloatVector(embed(query))},
		"embedding", milvusMetric, k, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("cache: searching milvus: %w", err)
	}

	var entries []Entry
	for _, res := range results {
		queryCol := res.Fields.GetColumn("query_text")
		responseCol := res.Fields.GetColumn("llm_response")
		for i := 0; i < res.ResultCount; i++ {
			qt, _ := queryCol.GetAsString(i)
			lr, _ := responseCol.GetAsString(i)
			entries = append(entries, Entry{ModelID: modelID, QueryText: qt, LLMResponse: lr})
		}
	}
	return entries, nil
}

// Invalidate implements VectorIndex.
func (idx *MilvusIndex) Invalidate(ctx context.Context, modelID uuid.UUID) error {
	expr := fmt.Sprintf("model_id == \"%s\"", modelID.String())
	if err := idx.c.Delete(ctx, milvusCollection, "", expr); err != nil {
		return fmt.Errorf("cache: deleting from milvus: %w", err)
	}
	return nil
}

// Persist implements VectorIndex: Milvus writes are durable once
// acknowledged, so flushing just forces pending inserts to become visible
// to search sooner.
func (idx *MilvusIndex) Persist(ctx context.Context) error {
	if err := idx.c.Flush(ctx, milvusCollection, false); err != nil {
		return fmt.Errorf("cache: flushing milvus collection: %w", err)
	}
	return nil
}
