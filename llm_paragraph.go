package aidetect

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const paragraphPassTimeout = 120 * time.Second

const paragraphSystemPrompt = `You score whether each numbered block of text was likely generated by an AI writing system. ` +
	`Return exactly one JSON object of the form {"segments":[{"chunk_id":<int>,"probability":<0..1>,"confidence":<0..1>}, ...]} ` +
	`covering every chunk_id you were given, with no text outside the JSON object.`

// RunParagraphPass implements C4 §4.4.1: one batched request scoring every
// paragraph block. On any failure the whole batch falls back to the local
// baseline and every block gets the llm_batch_unavailable_local_fallback tag.
func RunParagraphPass(ctx context.Context, caller LLMCaller, model string, blocks []TextBlock, local []SegmentScore) []SegmentScore {
	if caller == nil || len(blocks) == 0 {
		return local
	}

	callCtx, cancel := context.WithTimeout(ctx, paragraphPassTimeout)
	defer cancel()

	raw, err := caller.Call(callCtx, model, paragraphSystemPrompt, buildParagraphPrompt(blocks), true, false)
	if err != nil {
		return fallbackAll(local, "llm_batch_unavailable_local_fallback")
	}

	results, ok := parseSegmentsResponse(raw)
	if !ok {
		return fallbackAll(local, "llm_batch_unavailable_local_fallback")
	}

	byChunk := make(map[int]llmSegmentResult, len(results))
	for _, r := range results {
		byChunk[r.ChunkID] = r
	}

	out := make([]SegmentScore, len(local))
	for i, s := range local {
		if r, found := byChunk[s.ChunkID]; found {
			out[i] = applyLLMResult(s, r, model)
		} else {
			out[i] = appendExplanation(s, "llm_batch_unavailable_local_fallback")
		}
	}
	return out
}

func buildParagraphPrompt(blocks []TextBlock) string {
	var b strings.Builder
	for _, blk := range blocks {
		fmt.Fprintf(&b, "[chunk_id=%d] %s\n", blk.ChunkID, blk.Text)
	}
	return b.String()
}

func fallbackAll(local []SegmentScore, tag string) []SegmentScore {
	out := make([]SegmentScore, len(local))
	for i, s := range local {
		out[i] = appendExplanation(s, tag)
	}
	return out
}

func appendExplanation(s SegmentScore, tag string) SegmentScore {
	s.Explanations = append(append([]string{}, s.Explanations...), tag)
	return s
}

func applyLLMResult(s SegmentScore, r llmSegmentResult, model string) SegmentScore {
	p := clamp(r.Probability, 0.02, 0.98)
	s.AIProbability = p
	s.RawProbability = p
	s.Signals.LLM = LLMSignal{Prob: &p, Models: []string{model}}
	if r.Confidence != nil {
		s.Confidence = clamp(*r.Confidence, 0, 0.95)
	}
	if r.Uncertainty != nil {
		s.Uncertainty = r.Uncertainty
	}
	return s
}
