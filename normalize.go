package aidetect

import (
	"regexp"
	"strings"
)

// Normalize applies the C1 Text Normalizer contract from spec.md §4.1: a
// total function from raw text to a UTF-8 string whose byte offsets are
// stable for every later stage. Invalid UTF-8 is the caller's
// responsibility (it is handled upstream by file-extraction collaborators).
func Normalize(text string) string {
	s := text
	s = smartQuoteReplacer.Replace(s)
	s = dashReplacer.Replace(s)
	s = ideographicSpaceRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalWhitespaceRe.ReplaceAllString(s, " ")
	s = trimTrailingPerLine(s)
	return s
}

var (
	smartQuoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	// Em dash, en dash, and overlong dashes all collapse to ASCII hyphen.
	dashReplacer            = strings.NewReplacer("—", "-", "–", "-", "―", "-")
	ideographicSpaceRe      = regexp.MustCompile("[　 ]")
	horizontalWhitespaceRe  = regexp.MustCompile(`[ \t]+`)
)

func trimTrailingPerLine(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	return strings.Join(lines, "\n")
}

// cjkRe matches a single codepoint in the CJK Unified Ideographs block.
var cjkRe = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)

// DetectLanguage implements the heuristic from spec.md §4.1: the ratio of
// CJK codepoints to non-whitespace codepoints decides zh vs en.
func DetectLanguage(text string) string {
	var cjk, nonSpace int
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		nonSpace++
		if r >= 0x4e00 && r <= 0x9fff {
			cjk++
		}
	}
	if nonSpace == 0 {
		return "en"
	}
	if float64(cjk)/float64(nonSpace) > 0.30 {
		return "zh"
	}
	return "en"
}

var tokenRe = regexp.MustCompile(`[A-Za-z0-9_]+|[\x{4e00}-\x{9fff}]`)

// EstimateTokens counts matches of [A-Za-z0-9_]+ or a single CJK codepoint,
// with a floor of 1, per spec.md §4.1.
func EstimateTokens(text string) int {
	n := len(tokenRe.FindAllString(text, -1))
	if n < 1 {
		return 1
	}
	return n
}
