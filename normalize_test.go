package aidetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Hello\r\nworld\r\n",
		"“Quoted”   text — with an em dash.",
		"line one   \nline two\t\n",
		"　full-width space",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize should be idempotent for %q", in)
	}
}

func TestNormalizeCollapsesCRLFAndSmartPunctuation(t *testing.T) {
	got := Normalize("“Hi” — there\r\nsecond line")
	assert.NotContains(t, got, "\r")
	assert.Contains(t, got, `"Hi"`)
	assert.Contains(t, got, "- there")
	assert.Contains(t, got, "\nsecond line")
}

func TestNormalizeTrimsTrailingHorizontalWhitespacePerLine(t *testing.T) {
	got := Normalize("first line   \nsecond\t\n")
	assert.Equal(t, "first line\nsecond\n", got)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", DetectLanguage("The quick brown fox jumps over the lazy dog."))
	assert.Equal(t, "zh", DetectLanguage("人类写作人类写作人类写作人类写作"))
	assert.Equal(t, "en", DetectLanguage(""))
}

func TestEstimateTokensHasFloorOfOne(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("!!!"))
	assert.GreaterOrEqual(t, EstimateTokens("one two three"), 3)
}
