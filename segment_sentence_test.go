package aidetect

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentencesLocalDoesNotSplitOnDecimalPoint(t *testing.T) {
	text := strings.Repeat("字", 245) + "3.14" + "。"
	spans := splitSentencesLocal(text)
	require.Len(t, spans, 1, "the decimal point inside 3.14 must not be treated as a sentence boundary")
	assert.Equal(t, text, text[spans[0].Start:spans[0].End])
}

func TestSplitSentencesLocalSkipsTerminalsInsideDoubleQuotes(t *testing.T) {
	text := `She said "Is this real? Maybe not." Then she left.`
	spans := splitSentencesLocal(text)
	require.Len(t, spans, 2)
	assert.Equal(t, `She said "Is this real? Maybe not."`, text[spans[0].Start:spans[0].End])
	assert.Equal(t, "Then she left.", text[spans[1].Start:spans[1].End])
}

func TestPackSentenceSpansRespectsMinTargetMax(t *testing.T) {
	text := strings.Repeat("This is one short sentence. ", 40)
	spans := splitSentencesLocal(text)
	blocks := packSentenceSpans(text, spans)
	require.NotEmpty(t, blocks)
	for i, b := range blocks {
		n := codepointLen(b.Text)
		if i != len(blocks)-1 {
			assert.GreaterOrEqual(t, n, sentenceBlockMin)
		}
		assert.LessOrEqual(t, n, sentenceBlockMax)
		assert.Equal(t, i, b.ChunkID)
	}
}

func TestBuildSentenceBlocksFallsBackToLocalWhenSpannerFails(t *testing.T) {
	text := "First sentence here. Second sentence follows."
	spanner := &fakeSentenceSpanner{err: assertErr}
	blocks := BuildSentenceBlocks(context.Background(), text, "en", spanner, nil)
	require.NotEmpty(t, blocks)
	assert.Equal(t, "Second sentence follows.", blocks[len(blocks)-1].Text[len(blocks[len(blocks)-1].Text)-len("Second sentence follows."):])
}

func TestMergeSentenceSpansJoinsConsecutive(t *testing.T) {
	spans := []Offsets{{Start: 0, End: 5}, {Start: 5, End: 10}, {Start: 10, End: 15}}
	merged := mergeSentenceSpans(spans, []int{0})
	require.Len(t, merged, 2)
	assert.Equal(t, Offsets{Start: 0, End: 10}, merged[0])
	assert.Equal(t, Offsets{Start: 10, End: 15}, merged[1])
}

type fakeSentenceSpanner struct {
	spans []Offsets
	err   error
}

func (f *fakeSentenceSpanner) Spans(ctx context.Context, text, language string) ([]Offsets, error) {
	return f.spans, f.err
}

var assertErr = &SegmenterError{Reason: "stub spanner failure"}
