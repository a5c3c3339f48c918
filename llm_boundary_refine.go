package aidetect

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const boundaryRefineSystemPrompt = `You see a numbered list of consecutive sentences from one document. ` +
	`Return exactly one JSON object {"merge_at":[<int>, ...]} listing the index of every sentence that should be merged ` +
	`with the sentence immediately following it, because together they read as a single sentence. ` +
	`Never suggest rewriting text; only suggest which boundaries to remove. Return {"merge_at":[]} if none.`

// llmBoundaryRefiner adapts an LLMCaller into a SentenceBoundaryRefiner
// (spec.md §4.2.2 step 2).
type llmBoundaryRefiner struct {
	caller LLMCaller
	model  string
}

// NewLLMBoundaryRefiner returns a SentenceBoundaryRefiner backed by caller,
// or nil if caller is nil (callers can pass the result straight through;
// BuildSentenceBlocks treats a nil refiner as "no refinement").
func NewLLMBoundaryRefiner(caller LLMCaller, model string) SentenceBoundaryRefiner {
	if caller == nil {
		return nil
	}
	return &llmBoundaryRefiner{caller: caller, model: model}
}

func (r *llmBoundaryRefiner) RefineBoundaries(ctx context.Context, sentences []string) ([]int, error) {
	var b strings.Builder
	for i, s := range sentences {
		fmt.Fprintf(&b, "%d: %s\n", i, s)
	}
	raw, err := r.caller.Call(ctx, r.model, boundaryRefineSystemPrompt, b.String(), true, false)
	if err != nil {
		return nil, err
	}
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("boundary refine: response was not JSON")
	}
	mergeAt := obj.Get("merge_at")
	if !mergeAt.Exists() || !mergeAt.IsArray() {
		return nil, nil
	}
	var out []int
	mergeAt.ForEach(func(_, v gjson.Result) bool {
		out = append(out, int(v.Int()))
		return true
	})
	return out, nil
}
