package aidetect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSentencePassFallsBackOnRetryExhaustion(t *testing.T) {
	caller := &fakeCaller{err: errors.New("429 rate limited")}
	blocks := []TextBlock{
		{ChunkID: 0, Text: "This sentence is long enough to clear the LLM floor and get routed to a call."},
		{ChunkID: 1, Text: "Another sentence that also clears the floor and gets its own call attempt."},
	}
	local := ScoreBlocksLocally(blocks, "en", true, true)

	outBlocks, outScores := RunSentencePass(context.Background(), caller, "deepseek-chat", blocks, local)
	require.Len(t, outScores, 2)
	for _, s := range outScores {
		assert.Contains(t, s.Explanations, "deepseek_retry_exhausted_local_fallback")
		assert.GreaterOrEqual(t, s.AIProbability, 0.02)
		assert.LessOrEqual(t, s.AIProbability, 0.98)
	}
	for i, b := range outBlocks {
		assert.Equal(t, blocks[i].Text, b.Text)
	}

	_, agg := Aggregate(outScores, SensitivityMedium)
	assert.NotEqual(t, Decision(""), agg.Decision, "aggregation must still produce a verdict when every block fell back")
}

func TestRunSentencePassDropsUnderFloorBlocks(t *testing.T) {
	blocks := []TextBlock{{ChunkID: 0, Text: "Hi."}}
	local := ScoreBlocksLocally(blocks, "en", true, true)
	outBlocks, _ := RunSentencePass(context.Background(), &fakeCaller{}, "m", blocks, local)
	assert.Equal(t, LabelFiltered, outBlocks[0].Label)
}

func TestRunSentencePassLeavesMidRangeBlocksLocalOnly(t *testing.T) {
	blocks := []TextBlock{{ChunkID: 0, Text: "Just long enough maybe."}}
	local := ScoreBlocksLocally(blocks, "en", true, true)
	caller := &fakeCaller{response: `{"segments":[{"chunk_id":0,"probability":0.9,"confidence":0.9}]}`}
	outBlocks, outScores := RunSentencePass(context.Background(), caller, "m", blocks, local)
	assert.NotEqual(t, LabelFiltered, outBlocks[0].Label)
	assert.Equal(t, local[0].AIProbability, outScores[0].AIProbability, "a mid-range block must keep its local score untouched, no call made")
}

func TestRunSentencePassAppliesLLMResultOnSuccess(t *testing.T) {
	text := "This block is long enough to cross the LLM floor and receive a scored response back from the provider."
	blocks := []TextBlock{{ChunkID: 0, Text: text}}
	local := ScoreBlocksLocally(blocks, "en", true, true)
	caller := &fakeCaller{response: `{"segments":[{"chunk_id":0,"probability":0.77,"confidence":0.81}]}`}

	_, outScores := RunSentencePass(context.Background(), caller, "m", blocks, local)
	require.Len(t, outScores, 1)
	assert.InDelta(t, 0.77, outScores[0].AIProbability, 1e-9)
	assert.InDelta(t, 0.81, outScores[0].Confidence, 1e-9)
	assert.Equal(t, []string{"m"}, outScores[0].Signals.LLM.Models)
}
