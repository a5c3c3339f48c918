package aidetect

import (
	"regexp"
	"strings"
)

// styleTokenRe is the C3 tokenizer from spec.md §4.3.1: English by word,
// Chinese by character. It is deliberately the same pattern as tokenRe in
// normalize.go but kept as its own symbol since the two serve different
// contracts (token estimation vs. stylometric fingerprinting).
var styleTokenRe = regexp.MustCompile(`[A-Za-z0-9_]+|[\x{4e00}-\x{9fff}]`)

func styleTokens(text string) []string {
	return styleTokenRe.FindAllString(text, -1)
}

// functionWords is a small closed-class list used only for the optional
// function_word_ratio diagnostic; it is intentionally short since the
// channel is advisory, not scored against directly (spec.md §3).
var functionWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "with": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"this": true, "that": true, "these": true, "those": true, "it": true,
	"as": true, "at": true, "by": true, "from": true, "not": true, "no": true,
}

var punctuationRe = regexp.MustCompile(`[.,;:!?"'()\[\]{}—\-…、。，；：！？]`)

// ComputeStylometryFeatures implements the C3 feature extraction contract
// from spec.md §4.3.1.
func ComputeStylometryFeatures(text string) StylometryFeatures {
	tokens := styleTokens(text)
	return StylometryFeatures{
		TTR:               clamp01(typeTokenRatio(tokens)),
		AvgSentenceLen:    averageSentenceLenChars(text),
		RepeatRatio:       clamp01(repeatRatio(tokens)),
		NgramRepeatRate:   clamp01(ngramRepeatRate(tokens, 3)),
		FunctionWordRatio: clamp01(functionWordRatio(tokens)),
		PunctuationRatio:  clamp01(punctuationRatio(text)),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func typeTokenRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		seen[strings.ToLower(t)] = true
	}
	return float64(len(seen)) / float64(len(tokens))
}

// averageSentenceLenChars splits with the same local rule C2.2 falls back
// to and averages codepoint length per sentence, per spec.md §4.3.1.
func averageSentenceLenChars(text string) float64 {
	spans := splitSentencesLocal(text)
	if len(spans) == 0 {
		return float64(codepointLen(text))
	}
	total := 0
	for _, sp := range spans {
		total += codepointLen(text[sp.Start:sp.End])
	}
	return float64(total) / float64(len(spans))
}

// repeatRatio is the fraction of token occurrences belonging to tokens that
// occur 3 or more times in the block (spec.md §3).
func repeatRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[strings.ToLower(t)]++
	}
	repeated := 0
	for _, t := range tokens {
		if counts[strings.ToLower(t)] >= 3 {
			repeated++
		}
	}
	return float64(repeated) / float64(len(tokens))
}

// ngramRepeatRate is the share of n-grams (by count, not distinct n-grams)
// that repeat at least once elsewhere in the block (spec.md §3).
func ngramRepeatRate(tokens []string, n int) float64 {
	if len(tokens) < n {
		return 0
	}
	total := len(tokens) - n + 1
	counts := make(map[string]int, total)
	grams := make([]string, 0, total)
	for i := 0; i+n <= len(tokens); i++ {
		g := strings.ToLower(strings.Join(tokens[i:i+n], " "))
		grams = append(grams, g)
		counts[g]++
	}
	repeated := 0
	for _, g := range grams {
		if counts[g] >= 2 {
			repeated++
		}
	}
	return float64(repeated) / float64(total)
}

func functionWordRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	n := 0
	for _, t := range tokens {
		if functionWords[strings.ToLower(t)] {
			n++
		}
	}
	return float64(n) / float64(len(tokens))
}

func punctuationRatio(text string) float64 {
	total := codepointLen(text)
	if total == 0 {
		return 0
	}
	n := len(punctuationRe.FindAllString(text, -1))
	return float64(n) / float64(total)
}
