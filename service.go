package aidetect

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service is the top-level detection entry point. It owns the single-permit
// busy semaphore from spec.md §5 ("one detection in flight per process")
// and the provider registry used to resolve an LLMCaller from a
// DetectRequest's "name:model" provider spec.
type Service struct {
	cfg      *Config
	registry ProviderRegistry
	busy     chan struct{}
}

// NewService builds a Service. registry may be nil or have no entries if
// every detection in this process is local-only.
func NewService(cfg *Config, registry ProviderRegistry) *Service {
	return &Service{cfg: cfg, registry: registry, busy: make(chan struct{}, 1)}
}

func (svc *Service) acquire() bool {
	select {
	case svc.busy <- struct{}{}:
		return true
	default:
		return false
	}
}

func (svc *Service) release() {
	select {
	case <-svc.busy:
	default:
	}
}

// Detect implements the detect() operation from spec.md §6.
func (svc *Service) Detect(ctx context.Context, req DetectRequest) (*DetectResponse, error) {
	return svc.run(ctx, req, req.DualMode)
}

// DetectDualMode implements detect_dual_mode(): identical to Detect except
// C6 always runs regardless of req.DualMode.
func (svc *Service) DetectDualMode(ctx context.Context, req DetectRequest) (*DetectResponse, error) {
	return svc.run(ctx, req, true)
}

func (svc *Service) run(ctx context.Context, req DetectRequest, dual bool) (*DetectResponse, error) {
	if !svc.acquire() {
		return nil, &BusyError{}
	}
	defer svc.release()

	start := time.Now()

	if strings.TrimSpace(req.Text) == "" {
		return nil, &InvalidInputError{Reason: "text is empty"}
	}
	sensitivity, err := ParseSensitivity(string(req.Sensitivity))
	if err != nil {
		return nil, err
	}
	providerName, model, err := ParseProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	var caller LLMCaller
	if providerName != "" {
		caller, err = svc.registry.Caller(providerName)
		if err != nil {
			return nil, &ProviderError{Provider: providerName, Cause: err}
		}
	}

	text := Normalize(req.Text)
	language := DetectLanguage(text)

	paraBlocks, filterSummary, err := buildParagraphStage(text, req)
	if err != nil {
		return nil, err
	}

	var cache *EmbeddingCache
	if svc.cfg.UseEmbeddingCache && svc.cfg.EmbeddingClient != nil && svc.cfg.VectorClient != nil {
		cache = NewEmbeddingCache(svc.cfg.EmbeddingClient, svc.cfg.VectorClient)
	}

	paraScores := ScoreBlocksLocally(paraBlocks, language, req.UsePerplexity, req.UseStylometry)
	var paraEmbeddings [][]float32
	switch {
	case caller != nil && cache != nil:
		remBlocks, remScores, remIdx, merged, embeddings := runCacheStage(ctx, cache, paraBlocks, paraScores)
		paraEmbeddings = embeddings
		if len(remBlocks) > 0 {
			llmScores := RunParagraphPass(ctx, caller, model, remBlocks, remScores)
			for k, idx := range remIdx {
				merged[idx] = llmScores[k]
			}
		}
		paraScores = merged
		storeCacheMisses(ctx, cache, paraScores, paraEmbeddings, remIdx)
	case caller != nil:
		paraScores = RunParagraphPass(ctx, caller, model, paraBlocks, paraScores)
	}
	paraScores = clusterDuplicates(paraScores, paraEmbeddings)
	usableParaBlocks, usableParaScores := excludeFiltered(paraBlocks, paraScores)
	usableParaScores, paraAgg := Aggregate(usableParaScores, sensitivity)

	resp := &DetectResponse{
		Aggregation: paraAgg,
		Segments:    usableParaScores,
		PreprocessSummary: PreprocessSummary{
			Language: language,
			Chunks:   len(paraBlocks),
			Redacted: 0,
		},
		Version:       Version,
		RequestID:     uuid.New().String(),
		FilterSummary: filterSummary,
	}

	providerBreakdown := map[string]int{}
	if providerName != "" {
		providerBreakdown[providerName] = countFallbacks(usableParaScores)
	}

	if dual {
		var refiner SentenceBoundaryRefiner
		if !svc.cfg.DisableSentenceLLMRefine {
			refiner = NewLLMBoundaryRefiner(caller, model)
		}
		sentBlocks := BuildSentenceBlocks(ctx, text, language, svc.cfg.SentenceSpanner, refiner)
		sentScores := ScoreBlocksLocally(sentBlocks, language, req.UsePerplexity, req.UseStylometry)
		if caller != nil {
			sentBlocks, sentScores = RunSentencePass(ctx, caller, model, sentBlocks, sentScores)
		}
		usableSentBlocks, usableSentScores := excludeFiltered(sentBlocks, sentScores)
		usableSentScores, sentAgg := Aggregate(usableSentScores, sensitivity)

		dualResult := ComputeDualResult(usableParaBlocks, usableParaScores, paraAgg, usableSentBlocks, usableSentScores, sentAgg)
		resp.DualDetection = &dualResult
		resp.Aggregation = dualResult.Fused

		if providerName != "" {
			providerBreakdown[providerName] += countFallbacks(usableSentScores)
		}
	}

	if cache != nil {
		cache.Wait()
	}

	resp.Cost = Cost{
		Tokens:            EstimateTokens(text),
		LatencyMs:         time.Since(start).Milliseconds(),
		ProviderBreakdown: providerBreakdown,
	}
	return resp, nil
}

func buildParagraphStage(text string, req DetectRequest) ([]TextBlock, *FilterSummary, error) {
	if len(req.Paragraphs) == 0 {
		return BuildParagraphBlocks(text), nil, nil
	}
	blocks, err := BuildParagraphBlocksFromStrings(text, req.Paragraphs, req.ParagraphHints)
	if err != nil {
		return nil, nil, err
	}
	summary := &FilterSummary{}
	for _, h := range req.ParagraphHints {
		switch h {
		case FilterHintTitle:
			summary.TitlesLike++
		case FilterHintReference:
			summary.References++
		case FilterHintTOC:
			summary.TOC++
		}
	}
	return blocks, summary, nil
}

// excludeFiltered drops blocks (and their paired scores) labeled filtered
// before aggregation, per spec.md §4.4.2's "drop, not included in
// aggregation" rule for under-length sentence blocks, generalized to any
// filtered label.
func excludeFiltered(blocks []TextBlock, scores []SegmentScore) ([]TextBlock, []SegmentScore) {
	outB := make([]TextBlock, 0, len(blocks))
	outS := make([]SegmentScore, 0, len(scores))
	for i, b := range blocks {
		if b.Label == LabelFiltered {
			continue
		}
		outB = append(outB, b)
		outS = append(outS, scores[i])
	}
	return outB, outS
}

func countFallbacks(scores []SegmentScore) int {
	n := 0
	for _, s := range scores {
		for _, tag := range s.Explanations {
			if tag == "llm_batch_unavailable_local_fallback" || tag == "deepseek_retry_exhausted_local_fallback" {
				n++
				break
			}
		}
	}
	return n
}
