package aidetect

import (
	"context"
	"log"
	"math"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cheekai/aidetect/clients/pinecone"
	"github.com/cheekai/aidetect/clients/voyage"
	"github.com/cheekai/aidetect/utils/dsu"
)

// EmbeddingClient generates a vector embedding for a string of text. Backs
// the optional embedding cache (C3.5, SPEC_FULL.md §4.7).
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorMatch is one nearest-neighbor result from a VectorClient search.
type VectorMatch struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// VectorClient stores and searches embeddings alongside metadata. Backs the
// optional embedding cache (C3.5, SPEC_FULL.md §4.7).
type VectorClient interface {
	Search(ctx context.Context, vector []float32, topK int) ([]VectorMatch, error)
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
}

// voyageEmbeddingGenerator is the subset of clients/voyage's service this
// package consumes, held as an interface so the unexported concrete type
// returned by voyage.NewEmbeddingService never needs naming here.
type voyageEmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string, embeddingType voyage.VoyageEmbeddingType) ([]float32, error)
}

// VoyageEmbeddingClient adapts clients/voyage to EmbeddingClient.
type VoyageEmbeddingClient struct {
	svc voyageEmbeddingGenerator
}

// NewVoyageEmbeddingClient builds an EmbeddingClient backed by Voyage AI.
// Key resolution happens inside clients/voyage from VOYAGEAI_API_KEY.
func NewVoyageEmbeddingClient() *VoyageEmbeddingClient {
	return &VoyageEmbeddingClient{svc: voyage.NewEmbeddingService()}
}

func (c *VoyageEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return c.svc.GenerateEmbedding(ctx, text, voyage.VoyageEmbeddingTypeDocument)
}

// pineconeIndex is the subset of clients/pinecone's index operations this
// package consumes.
type pineconeIndex interface {
	Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any, includeMetadata bool) ([]pinecone.QueryMatch, error)
	Upsert(ctx context.Context, vectors []pinecone.Vector) error
}

// PineconeVectorClient adapts clients/pinecone to VectorClient.
type PineconeVectorClient struct {
	index pineconeIndex
}

// NewPineconeVectorClient builds a VectorClient scoped to one namespace.
// Key and host resolution happen inside clients/pinecone from
// PINECONE_API_KEY / PINECONE_BASE_HOST.
func NewPineconeVectorClient(namespace string) *PineconeVectorClient {
	svc := pinecone.NewPineconeService()
	return &PineconeVectorClient{index: svc.ForBaseIndex(namespace)}
}

func (c *PineconeVectorClient) Search(ctx context.Context, vector []float32, topK int) ([]VectorMatch, error) {
	matches, err := c.index.Search(ctx, vector, topK, nil, true)
	if err != nil {
		return nil, err
	}
	out := make([]VectorMatch, len(matches))
	for i, m := range matches {
		metadata := map[string]any{}
		id := ""
		if m.Vector != nil {
			id = m.Vector.Id
			if m.Vector.Metadata != nil {
				metadata = m.Vector.Metadata.AsMap()
			}
		}
		out[i] = VectorMatch{ID: id, Score: m.Score, Metadata: metadata}
	}
	return out, nil
}

func (c *PineconeVectorClient) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	metadataStruct, err := structpb.NewStruct(metadata)
	if err != nil {
		return err
	}
	return c.index.Upsert(ctx, []pinecone.Vector{{
		Id:       id,
		Values:   vector,
		Metadata: &pinecone.Metadata{Fields: metadataStruct.Fields},
	}})
}

// EmbeddingCache is the optional embedding-backed score cache (C3.5). It is
// never required for a detection: Config.UseEmbeddingCache gates whether
// the service consults it, and every method degrades to a miss on error
// rather than failing the detection, matching the teacher's "don't fail the
// classification, just log" stance in processBackgroundTasks.
type EmbeddingCache struct {
	embedding EmbeddingClient
	vector    VectorClient
	pending   sync.WaitGroup
}

func NewEmbeddingCache(embedding EmbeddingClient, vector VectorClient) *EmbeddingCache {
	return &EmbeddingCache{embedding: embedding, vector: vector}
}

type cacheHit struct {
	Probability float64
	Confidence  float64
}

// Lookup embeds text and searches the vector index for the nearest
// previously-scored block. A hit at or above DefaultEmbeddingCacheSimilarity
// returns ok=true along with the embedding (so the caller can reuse it for
// Store or duplicate clustering without re-embedding); any error or
// sub-floor match reports ok=false but still returns the embedding when one
// was successfully computed.
func (c *EmbeddingCache) Lookup(ctx context.Context, text string) (hit cacheHit, embedding []float32, ok bool) {
	embedding, err := c.embedding.GenerateEmbedding(ctx, text)
	if err != nil {
		return cacheHit{}, nil, false
	}
	matches, err := c.vector.Search(ctx, embedding, 1)
	if err != nil || len(matches) == 0 {
		return cacheHit{}, embedding, false
	}
	top := matches[0]
	if float64(top.Score) < DefaultEmbeddingCacheSimilarity {
		return cacheHit{}, embedding, false
	}
	prob, ok1 := top.Metadata["probability"].(float64)
	conf, ok2 := top.Metadata["confidence"].(float64)
	if !ok1 || !ok2 {
		return cacheHit{}, embedding, false
	}
	return cacheHit{Probability: prob, Confidence: conf}, embedding, true
}

// Store asynchronously upserts a block's (embedding, probability,
// confidence) into the vector index. Store errors are logged and dropped,
// never surfaced to the caller. Callers that need every Store to have
// landed before returning (service.go does, so a second request sees the
// first's writes) should call Wait afterward.
func (c *EmbeddingCache) Store(ctx context.Context, embedding []float32, probability, confidence float64) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		id := uuid.New().String()
		metadata := map[string]any{"probability": probability, "confidence": confidence}
		if err := c.vector.Upsert(ctx, id, embedding, metadata); err != nil {
			log.Printf("embedding cache store failed: %v", err)
		}
	}()
}

func (c *EmbeddingCache) Wait() {
	c.pending.Wait()
}

// runCacheStage consults cache for every block and splits them into cache
// hits (folded straight into merged, tagged embedding_cache_hit) and cache
// misses (returned for the caller to hand to an LLM pass). remIdx maps each
// entry of remBlocks/remScores back to its position in merged. embeddings
// is aligned to the input blocks and is nil at any index where embedding
// generation itself failed.
func runCacheStage(ctx context.Context, cache *EmbeddingCache, blocks []TextBlock, scores []SegmentScore) (remBlocks []TextBlock, remScores []SegmentScore, remIdx []int, merged []SegmentScore, embeddings [][]float32) {
	embeddings = make([][]float32, len(blocks))
	merged = make([]SegmentScore, len(scores))
	copy(merged, scores)

	for i, b := range blocks {
		hit, emb, ok := cache.Lookup(ctx, b.Text)
		embeddings[i] = emb
		if !ok {
			remBlocks = append(remBlocks, b)
			remScores = append(remScores, scores[i])
			remIdx = append(remIdx, i)
			continue
		}
		p := clamp(hit.Probability, 0.02, 0.98)
		merged[i].AIProbability = p
		merged[i].RawProbability = p
		merged[i].Confidence = clamp(hit.Confidence, 0, 0.95)
		merged[i].Signals.LLM = LLMSignal{Prob: &p}
		merged[i] = appendExplanation(merged[i], "embedding_cache_hit")
	}
	return
}

func hasFallbackTag(tags []string) bool {
	for _, t := range tags {
		if t == "llm_batch_unavailable_local_fallback" || t == "deepseek_retry_exhausted_local_fallback" {
			return true
		}
	}
	return false
}

// storeCacheMisses stores every resolved cache miss whose embedding
// succeeded and whose LLM call actually landed (a fallback tag means the
// score is still just the local estimate, not worth caching as an
// LLM-quality judgment).
func storeCacheMisses(ctx context.Context, cache *EmbeddingCache, scores []SegmentScore, embeddings [][]float32, remIdx []int) {
	for _, idx := range remIdx {
		if embeddings[idx] == nil || hasFallbackTag(scores[idx].Explanations) {
			continue
		}
		cache.Store(ctx, embeddings[idx], scores[idx].AIProbability, scores[idx].Confidence)
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// clusterDuplicates unions blocks whose embeddings are near-duplicates
// (adapted from the teacher's utils/dsu) and tags every member of a cluster
// with 3 or more members duplicated_boilerplate_cluster. It never changes a
// probability, only explanations (SPEC_FULL.md §4.7 step 5).
func clusterDuplicates(scores []SegmentScore, embeddings [][]float32) []SegmentScore {
	n := len(embeddings)
	valid := 0
	for _, e := range embeddings {
		if e != nil {
			valid++
		}
	}
	if valid < 3 {
		return scores
	}

	d := dsu.NewDSU(0)
	idxOf := make([]int, n)
	for i := range embeddings {
		idxOf[i] = d.Add(strconv.Itoa(i))
	}
	for i := 0; i < n; i++ {
		if embeddings[i] == nil {
			continue
		}
		for j := i + 1; j < n; j++ {
			if embeddings[j] == nil {
				continue
			}
			if cosineSimilarity(embeddings[i], embeddings[j]) >= DefaultDuplicateClusterSimilarity {
				d.Union(idxOf[i], idxOf[j])
			}
		}
	}

	clusterSize := make(map[int]int)
	for i := range embeddings {
		if embeddings[i] == nil {
			continue
		}
		clusterSize[d.Find(idxOf[i])]++
	}

	out := make([]SegmentScore, len(scores))
	copy(out, scores)
	for i := range embeddings {
		if embeddings[i] == nil {
			continue
		}
		if clusterSize[d.Find(idxOf[i])] >= 3 {
			out[i] = appendExplanation(out[i], "duplicated_boilerplate_cluster")
		}
	}
	return out
}
