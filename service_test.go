package aidetect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	response string
	err      error
}

func (f *fakeCaller) Call(ctx context.Context, model, systemPrompt, userPrompt string, requireJSON, reasoning bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newLocalOnlyService() *Service {
	return NewService(&Config{}, ProviderRegistry{})
}

func TestServiceDetectRejectsEmptyText(t *testing.T) {
	svc := newLocalOnlyService()
	_, err := svc.Detect(context.Background(), DetectRequest{Text: "   "})
	require.Error(t, err)
	var invalid *InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestServiceDetectRejectsUnknownSensitivity(t *testing.T) {
	svc := newLocalOnlyService()
	_, err := svc.Detect(context.Background(), DetectRequest{Text: "some text", Sensitivity: Sensitivity("extreme")})
	require.Error(t, err)
	var invalid *InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestServiceDetectRejectsMalformedProviderSpec(t *testing.T) {
	svc := newLocalOnlyService()
	_, err := svc.Detect(context.Background(), DetectRequest{Text: "some text", Provider: "not-a-valid-spec"})
	require.Error(t, err)
	var invalid *InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestServiceDetectRejectsUnregisteredProvider(t *testing.T) {
	svc := newLocalOnlyService()
	_, err := svc.Detect(context.Background(), DetectRequest{Text: "some text", Provider: "openai:gpt-4o-mini"})
	require.Error(t, err)
	var provErr *ProviderError
	assert.ErrorAs(t, err, &provErr)
}

func TestServiceDetectReturnsBusyWhenAlreadyRunning(t *testing.T) {
	svc := newLocalOnlyService()
	require.True(t, svc.acquire())

	_, err := svc.Detect(context.Background(), DetectRequest{Text: "some text"})
	require.Error(t, err)
	var busy *BusyError
	assert.ErrorAs(t, err, &busy)

	svc.release()
	_, err = svc.Detect(context.Background(), DetectRequest{Text: "plenty of ordinary text to score locally here."})
	assert.NoError(t, err)
}

func TestServiceDetectFlagsRepeatedTextScenario1(t *testing.T) {
	svc := newLocalOnlyService()
	text := strings.Repeat("人工智能写作", 80)
	resp, err := svc.Detect(context.Background(), DetectRequest{
		Text:          text,
		UsePerplexity: true,
		UseStylometry: true,
		Sensitivity:   SensitivityMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionFlag, resp.Aggregation.Decision)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, Version, resp.Version)
}

func TestServiceDetectFallsBackWhenProviderErrors(t *testing.T) {
	registry := ProviderRegistry{"openai": &fakeCaller{err: errors.New("connection refused")}}
	svc := NewService(&Config{}, registry)
	resp, err := svc.Detect(context.Background(), DetectRequest{
		Text:          strings.Repeat("Ordinary varied sentence number may differ slightly each time. ", 20),
		UsePerplexity: true,
		UseStylometry: true,
		Provider:      "openai:gpt-4o-mini",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Segments)
	for _, s := range resp.Segments {
		assert.Contains(t, s.Explanations, "llm_batch_unavailable_local_fallback")
	}
	assert.Equal(t, len(resp.Segments), resp.Cost.ProviderBreakdown["openai"])
}

func TestServiceDetectDualModeAlwaysPopulatesDualDetection(t *testing.T) {
	svc := newLocalOnlyService()
	svc.cfg.DisableSentenceLLMRefine = true
	resp, err := svc.DetectDualMode(context.Background(), DetectRequest{
		Text:          "First sentence here. Second sentence follows along nicely.",
		UsePerplexity: true,
		UseStylometry: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.DualDetection)
	assert.Equal(t, resp.DualDetection.Fused, resp.Aggregation)
}

func TestServiceBuildParagraphStageReportsFilterSummary(t *testing.T) {
	text := "Intro paragraph here with enough content to stand alone.\n\nReferences\n\nSmith, J. (2020). A paper."
	req := DetectRequest{
		Text:           text,
		Paragraphs:     []string{"Intro paragraph here with enough content to stand alone.", "References", "Smith, J. (2020). A paper."},
		ParagraphHints: []FilterHint{FilterHintNone, FilterHintReference, FilterHintReference},
	}
	blocks, summary, err := buildParagraphStage(text, req)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.References)
}

func TestExcludeFilteredDropsMatchingPairs(t *testing.T) {
	blocks := []TextBlock{
		{ChunkID: 0, Label: LabelParagraphBody},
		{ChunkID: 1, Label: LabelFiltered},
	}
	scores := []SegmentScore{{ChunkID: 0}, {ChunkID: 1}}
	outB, outS := excludeFiltered(blocks, scores)
	assert.Len(t, outB, 1)
	assert.Len(t, outS, 1)
	assert.Equal(t, 0, outB[0].ChunkID)
}
