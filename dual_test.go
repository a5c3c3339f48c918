package aidetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseAggregationsScenario5(t *testing.T) {
	th := DefaultThresholds()
	para := Aggregation{OverallProbability: 0.80, OverallConfidence: 0.9, Thresholds: th, BufferMargin: DefaultBufferMargin}
	sent := Aggregation{OverallProbability: 0.40, OverallConfidence: 0.9, Thresholds: th, BufferMargin: DefaultBufferMargin}

	fused := fuseAggregations(para, sent, true)
	assert.InDelta(t, 0.64, fused.OverallProbability, 1e-9)
	assert.Equal(t, DecisionReview, fused.Decision)
}

func TestFuseAggregationsFallsBackToParagraphWhenSentenceUnusable(t *testing.T) {
	th := DefaultThresholds()
	para := Aggregation{OverallProbability: 0.80, OverallConfidence: 0.9, Thresholds: th, BufferMargin: DefaultBufferMargin, Decision: DecisionFlag}
	sent := Aggregation{OverallProbability: 0.01, OverallConfidence: 0.01, Thresholds: th, BufferMargin: DefaultBufferMargin}

	fused := fuseAggregations(para, sent, false)
	assert.Equal(t, para, fused)
}

func TestComparePassesProbabilityDiffScenario5(t *testing.T) {
	paraBlocks := []TextBlock{{ChunkID: 0, Offsets: Offsets{Start: 0, End: 100}, Text: "paragraph text here"}}
	sentBlocks := []TextBlock{{ChunkID: 0, Offsets: Offsets{Start: 0, End: 100}, Text: "sentence text here"}}
	paraScores := []SegmentScore{{ChunkID: 0, Offsets: Offsets{Start: 0, End: 100}, AIProbability: 0.80}}
	sentScores := []SegmentScore{{ChunkID: 0, Offsets: Offsets{Start: 0, End: 100}, AIProbability: 0.40}}
	th := DefaultThresholds()
	paraAgg := Aggregation{OverallProbability: 0.80, Thresholds: th, BufferMargin: DefaultBufferMargin}
	sentAgg := Aggregation{OverallProbability: 0.40, Thresholds: th, BufferMargin: DefaultBufferMargin}

	cmp := comparePasses(paraBlocks, paraScores, sentBlocks, sentScores, paraAgg, sentAgg)
	assert.InDelta(t, 0.40, cmp.ProbabilityDiff, 1e-9)
	assert.Less(t, cmp.ConsistencyScore, 1.0)
	assert.NotEmpty(t, cmp.DivergentRegions, "a 0.40 gap over fully overlapping spans must be reported as divergent")
}

func TestComparePassesNoSentenceScoresIsFullyConsistent(t *testing.T) {
	cmp := comparePasses(nil, nil, nil, nil, Aggregation{}, Aggregation{})
	assert.Equal(t, 1.0, cmp.ConsistencyScore)
	assert.Zero(t, cmp.ProbabilityDiff)
	assert.Empty(t, cmp.DivergentRegions)
}

func TestPreviewTextNeverSplitsMidCodepoint(t *testing.T) {
	s := "😊😊😊😊😊"
	got := previewText(s, 3)
	assert.Equal(t, 3, len([]rune(got)))
}

func TestComputeDualResultWiresFusedIntoResult(t *testing.T) {
	th := DefaultThresholds()
	paraAgg := Aggregation{OverallProbability: 0.80, OverallConfidence: 0.9, Thresholds: th, BufferMargin: DefaultBufferMargin}
	sentAgg := Aggregation{OverallProbability: 0.40, OverallConfidence: 0.9, Thresholds: th, BufferMargin: DefaultBufferMargin}
	sentScores := []SegmentScore{{ChunkID: 0, AIProbability: 0.4}}

	result := ComputeDualResult(nil, nil, paraAgg, nil, sentScores, sentAgg)
	assert.InDelta(t, 0.64, result.Fused.OverallProbability, 1e-9)
	assert.Equal(t, paraAgg, result.Paragraph)
	assert.Equal(t, sentAgg, result.Sentence)
}
