package aidetect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

type storedVector struct {
	id       string
	vector   []float32
	metadata map[string]any
}

type fakeVectorStore struct {
	stored     []storedVector
	searchErr  error
	matchScore float32
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]VectorMatch, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.stored) == 0 {
		return nil, nil
	}
	best := f.stored[0]
	return []VectorMatch{{ID: best.id, Score: f.matchScore, Metadata: best.metadata}}, nil
}

func (f *fakeVectorStore) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	f.stored = append(f.stored, storedVector{id: id, vector: vector, metadata: metadata})
	return nil
}

func TestEmbeddingCacheLookupHitAboveSimilarityFloor(t *testing.T) {
	store := &fakeVectorStore{
		stored:     []storedVector{{id: "a", metadata: map[string]any{"probability": 0.81, "confidence": 0.7}}},
		matchScore: float32(DefaultEmbeddingCacheSimilarity + 0.01),
	}
	cache := NewEmbeddingCache(&fakeEmbedder{}, store)
	hit, emb, ok := cache.Lookup(context.Background(), "some text")
	require.True(t, ok)
	assert.Equal(t, 0.81, hit.Probability)
	assert.Equal(t, 0.7, hit.Confidence)
	assert.NotNil(t, emb)
}

func TestEmbeddingCacheLookupMissBelowSimilarityFloor(t *testing.T) {
	store := &fakeVectorStore{
		stored:     []storedVector{{id: "a", metadata: map[string]any{"probability": 0.81, "confidence": 0.7}}},
		matchScore: float32(DefaultEmbeddingCacheSimilarity - 0.10),
	}
	cache := NewEmbeddingCache(&fakeEmbedder{}, store)
	_, emb, ok := cache.Lookup(context.Background(), "some text")
	assert.False(t, ok)
	assert.NotNil(t, emb, "the embedding should still be returned on a sub-floor miss so callers can reuse it")
}

func TestEmbeddingCacheLookupMissOnEmbeddingError(t *testing.T) {
	cache := NewEmbeddingCache(&fakeEmbedder{err: errors.New("quota exceeded")}, &fakeVectorStore{})
	hit, emb, ok := cache.Lookup(context.Background(), "some text")
	assert.False(t, ok)
	assert.Nil(t, emb)
	assert.Zero(t, hit.Probability)
}

func TestEmbeddingCacheStoreIsAwaitableViaWait(t *testing.T) {
	store := &fakeVectorStore{}
	cache := NewEmbeddingCache(&fakeEmbedder{}, store)
	cache.Store(context.Background(), []float32{1, 2, 3}, 0.6, 0.8)
	cache.Wait()
	require.Len(t, store.stored, 1)
	assert.Equal(t, 0.6, store.stored[0].metadata["probability"])
}

func TestRunCacheStageSplitsHitsAndMisses(t *testing.T) {
	store := &fakeVectorStore{
		stored:     []storedVector{{id: "a", metadata: map[string]any{"probability": 0.9, "confidence": 0.8}}},
		matchScore: float32(DefaultEmbeddingCacheSimilarity + 0.01),
	}
	cache := NewEmbeddingCache(&fakeEmbedder{}, store)
	blocks := []TextBlock{{ChunkID: 0, Text: "hit block"}}
	scores := ScoreBlocksLocally(blocks, "en", true, true)

	remBlocks, remScores, remIdx, merged, embeddings := runCacheStage(context.Background(), cache, blocks, scores)
	assert.Empty(t, remBlocks)
	assert.Empty(t, remScores)
	assert.Empty(t, remIdx)
	require.Len(t, merged, 1)
	assert.Contains(t, merged[0].Explanations, "embedding_cache_hit")
	assert.InDelta(t, 0.9, merged[0].AIProbability, 1e-9)
	assert.NotNil(t, embeddings[0])
}

func TestRunCacheStageTreatsEmptyStoreAsAllMisses(t *testing.T) {
	cache := NewEmbeddingCache(&fakeEmbedder{}, &fakeVectorStore{})
	blocks := []TextBlock{{ChunkID: 0, Text: "no prior matches exist for this block"}}
	scores := ScoreBlocksLocally(blocks, "en", true, true)

	remBlocks, remScores, remIdx, merged, _ := runCacheStage(context.Background(), cache, blocks, scores)
	require.Len(t, remBlocks, 1)
	require.Len(t, remScores, 1)
	assert.Equal(t, []int{0}, remIdx)
	assert.NotContains(t, merged[0].Explanations, "embedding_cache_hit")
}

func TestClusterDuplicatesTagsClustersOfThreeOrMore(t *testing.T) {
	base := make([]SegmentScore, 4)
	for i := range base {
		base[i] = SegmentScore{ChunkID: i}
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{1, 0, 0.001},
		{1, 0.001, 0},
		{0, 1, 0},
	}
	out := clusterDuplicates(base, embeddings)
	for i := 0; i < 3; i++ {
		assert.Contains(t, out[i].Explanations, "duplicated_boilerplate_cluster")
	}
	assert.NotContains(t, out[3].Explanations, "duplicated_boilerplate_cluster")
}

func TestClusterDuplicatesSkipsWhenFewerThanThreeEmbeddings(t *testing.T) {
	base := []SegmentScore{{ChunkID: 0}, {ChunkID: 1}}
	embeddings := [][]float32{{1, 0, 0}, {1, 0, 0}}
	out := clusterDuplicates(base, embeddings)
	assert.Equal(t, base, out)
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
}
