package aidetect

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	sentencePassConcurrency = 4
	sentenceCallTimeout     = 60 * time.Second
	sentenceDropCodepoints  = 10
	sentenceLLMFloor        = 50
	sentenceReasoningFloor  = 300
)

const sentenceSystemPrompt = `You score whether a single block of text was likely generated by an AI writing system. ` +
	`Return exactly one JSON object of the form {"segments":[{"chunk_id":<int>,"probability":<0..1>,"confidence":<0..1>}]} ` +
	`with no text outside the JSON object.`

// RunSentencePass implements C4 §4.4.2: length-routes each sentence block,
// fans out LLM calls bounded by a 4-slot semaphore, and collects results by
// chunk_id. Blocks under 10 codepoints are dropped from aggregation
// entirely (relabeled filtered); blocks between 10 and 49 keep their local
// score with no call. Per-call retries already happen inside the LLMCaller
// implementation (clients/openai, clients/groq); a call that still fails
// here has exhausted its retry budget.
func RunSentencePass(ctx context.Context, caller LLMCaller, model string, blocks []TextBlock, local []SegmentScore) ([]TextBlock, []SegmentScore) {
	outBlocks := make([]TextBlock, len(blocks))
	outScores := make([]SegmentScore, len(local))
	copy(outBlocks, blocks)
	copy(outScores, local)

	type job struct {
		idx int
		blk TextBlock
	}
	var jobs []job
	for i, blk := range blocks {
		n := codepointLen(blk.Text)
		switch {
		case n < sentenceDropCodepoints:
			outBlocks[i].Label = LabelFiltered
		case n < sentenceLLMFloor:
			// local score only, nothing to do
		case caller != nil:
			jobs = append(jobs, job{idx: i, blk: blk})
		}
	}

	if len(jobs) == 0 {
		return outBlocks, outScores
	}

	sem := make(chan struct{}, sentencePassConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			reasoning := codepointLen(j.blk.Text) >= sentenceReasoningFloor
			callCtx, cancel := context.WithTimeout(ctx, sentenceCallTimeout)
			defer cancel()

			raw, err := caller.Call(callCtx, model, sentenceSystemPrompt, buildSentencePrompt(j.blk), true, reasoning)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outScores[j.idx] = appendExplanation(outScores[j.idx], "deepseek_retry_exhausted_local_fallback")
				return
			}
			results, ok := parseSegmentsResponse(raw)
			if !ok || len(results) == 0 {
				outScores[j.idx] = appendExplanation(outScores[j.idx], "deepseek_retry_exhausted_local_fallback")
				return
			}
			outScores[j.idx] = applyLLMResult(outScores[j.idx], results[0], model)
		}(j)
	}
	wg.Wait()

	return outBlocks, outScores
}

func buildSentencePrompt(blk TextBlock) string {
	return fmt.Sprintf("[chunk_id=%d start=%d end=%d] %s", blk.ChunkID, blk.Offsets.Start, blk.Offsets.End, blk.Text)
}
