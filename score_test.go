package aidetect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStylometryFeaturesRepeatedChineseText(t *testing.T) {
	// A 6-character unit repeated exactly 5 times yields TTR = 6/(6*5) = 0.20.
	text := strings.Repeat("人工智能写作", 5)
	feats := ComputeStylometryFeatures(text)
	assert.InDelta(t, 0.20, feats.TTR, 0.01)
	assert.GreaterOrEqual(t, feats.RepeatRatio, 0.8)
}

func TestScoreLocalHighOnRepeatedTextScenario1(t *testing.T) {
	text := strings.Repeat("人工智能写作", 5)
	feats := ComputeStylometryFeatures(text)
	ppl := ComputePerplexity(text)
	p, _ := ScoreLocal(text, feats, ppl, true)
	assert.Greater(t, p, 0.75)
}

func TestScoreLocalLowOnVariedEnglishScenario2(t *testing.T) {
	sentences := []string{
		"The weather turned unexpectedly cold last Tuesday, catching most of us without coats.",
		"My neighbor's dog barked at the mail carrier again, though nobody seemed to mind much.",
		"We spent the afternoon arguing about whether the bridge needed repainting before winter.",
		"Grandma's recipe calls for three eggs, but I never have more than two on hand.",
		"The museum extended its hours for the photography exhibit after ticket demand surged.",
		"A sudden downpour sent everyone scrambling for the awning outside the corner bakery.",
		"He mentioned, almost in passing, that he'd taken up woodworking during the layoff.",
		"The committee postponed the vote until members could review the revised budget line.",
		"Something about the quiet hallway after closing time always unsettled the new guard.",
		"She kept the ticket stub from that concert tucked inside an old paperback novel.",
		"The ferry was late again, so we watched gulls circle the harbor until it docked.",
		"His handwriting got smaller every year, until the margins notes were barely legible.",
		"They argued over paint swatches for an hour before settling on the original color.",
		"The orchard sold out of cider by noon, earlier than anyone on staff had expected.",
		"A loose shutter kept banging upstairs until someone finally climbed up to fix it.",
		"She taught herself to solder by watching a neighbor rebuild an old radio set.",
		"The trail washed out near the ridge, so hikers were rerouted through the meadow.",
		"Nobody remembered whose idea the potluck was, but everyone showed up anyway.",
		"The printer jammed twice during the meeting, which nobody found surprising.",
		"He kept a jar of odd screws on the workbench, sorted by nothing in particular.",
	}
	varied := strings.Join(sentences, " ")
	degenerate := strings.Repeat(sentences[0]+" ", len(sentences))

	vFeats := ComputeStylometryFeatures(varied)
	vPPL := ComputePerplexity(varied)
	vP, vConf := ScoreLocal(varied, vFeats, vPPL, true)

	dFeats := ComputeStylometryFeatures(degenerate)
	dPPL := ComputePerplexity(degenerate)
	dP, _ := ScoreLocal(degenerate, dFeats, dPPL, true)

	assert.Less(t, vP, dP, "varied prose must score well below the same length of one sentence repeated")
	assert.GreaterOrEqual(t, vConf, 0.9, "a paragraph this long should saturate the length-based confidence term")
}

func TestScoreLocalStaysWithinUniversalBounds(t *testing.T) {
	texts := []string{
		"",
		"a",
		strings.Repeat("aaaa ", 500),
		"The quick brown fox jumps over the lazy dog, again and again and again and again.",
	}
	for _, text := range texts {
		feats := ComputeStylometryFeatures(text)
		ppl := ComputePerplexity(text)
		p, conf := ScoreLocal(text, feats, ppl, true)
		assert.GreaterOrEqual(t, p, 0.02)
		assert.LessOrEqual(t, p, 0.98)
		assert.GreaterOrEqual(t, conf, 0.0)
		assert.LessOrEqual(t, conf, 0.95)
	}
}

func TestScoreLocalDeterministicForSameText(t *testing.T) {
	text := "This repeats in the near-boundary range to exercise the perturbation path here."
	feats := ComputeStylometryFeatures(text)
	ppl := ComputePerplexity(text)
	p1, c1 := ScoreLocal(text, feats, ppl, true)
	p2, c2 := ScoreLocal(text, feats, ppl, true)
	assert.Equal(t, p1, p2)
	assert.Equal(t, c1, c2)
}

func TestScoreBlocksLocallyTagsDisabledChannels(t *testing.T) {
	blocks := []TextBlock{{ChunkID: 0, Text: "Some paragraph text that is long enough to score.", Label: LabelParagraphBody}}
	scores := ScoreBlocksLocally(blocks, "en", false, false)
	assert.Len(t, scores, 1)
	assert.Contains(t, scores[0].Explanations, "stylometry_channel_disabled")
	assert.Contains(t, scores[0].Explanations, "perplexity_channel_disabled")
	assert.Equal(t, scores[0].AIProbability, scores[0].RawProbability, "raw probability must equal the local probability before any LLM fusion")
}

func TestComputePerplexityNeverZeroOnEmptyText(t *testing.T) {
	sig := ComputePerplexity("")
	assert.Equal(t, 300.0, sig.PPL)
}
