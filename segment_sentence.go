package aidetect

import (
	"context"
	"time"
	"unicode/utf8"
)

const (
	sentenceBlockMin    = 50
	sentenceBlockTarget = 200
	sentenceBlockMax    = 300
)

// SentenceSpanner obtains sentence offsets for the dual-mode sentence pass,
// e.g. an external segmentation microservice (clients/sentseg). The local
// rule in splitSentencesLocal is always the fallback, per spec.md §4.2.2.
type SentenceSpanner interface {
	Spans(ctx context.Context, text, language string) ([]Offsets, error)
}

// SentenceBoundaryRefiner is the optional LLM boundary-merge collaborator
// from spec.md §4.2.2 step 2. It returns the indices of sentences that
// should be merged with the sentence immediately following them; it may
// never alter text.
type SentenceBoundaryRefiner interface {
	RefineBoundaries(ctx context.Context, sentences []string) ([]int, error)
}

func isSentenceTerminalRune(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isDigitRune(r rune) bool { return r >= '0' && r <= '9' }

// splitSentencesLocal implements the local rule from spec.md §4.2.2 step 1:
// split on a terminal rune, skipping decimal-point splits (digit . digit)
// and any terminal found inside a double-quoted span; a closing double quote
// that directly follows a terminal ends the sentence. Single quotes are
// left untouched since they double as apostrophes and can't be paired
// reliably without a grammar.
func splitSentencesLocal(text string) []Offsets {
	type runePos struct {
		off int
		r   rune
	}
	rs := make([]runePos, 0, len(text)+1)
	for i, r := range text {
		rs = append(rs, runePos{i, r})
	}
	rs = append(rs, runePos{len(text), 0})

	var spans []Offsets
	start := 0
	inQuote := false
	for j := 0; j < len(rs)-1; j++ {
		r := rs[j].r
		if r == '"' {
			inQuote = !inQuote
			if !inQuote && j > 0 && isSentenceTerminalRune(rs[j-1].r) {
				end := rs[j+1].off
				spans = append(spans, Offsets{Start: start, End: end})
				start = end
			}
			continue
		}
		if inQuote || !isSentenceTerminalRune(r) {
			continue
		}
		if r == '.' && j > 0 && isDigitRune(rs[j-1].r) && isDigitRune(rs[j+1].r) {
			continue
		}
		end := rs[j+1].off
		spans = append(spans, Offsets{Start: start, End: end})
		start = end
	}
	if start < len(text) {
		spans = append(spans, Offsets{Start: start, End: len(text)})
	}
	return trimSentenceSpans(text, spans)
}

func trimSentenceSpans(text string, spans []Offsets) []Offsets {
	out := make([]Offsets, 0, len(spans))
	for _, sp := range spans {
		s, e := trimOffsets(text, sp.Start, sp.End)
		if s < e {
			out = append(out, Offsets{Start: s, End: e})
		}
	}
	return out
}

// mergeSentenceSpans merges each span at a mergeAt index with the span
// immediately following it, recomputing the merged run's offsets as its
// outer start and end (spec.md §4.2.2 step 2).
func mergeSentenceSpans(spans []Offsets, mergeAt []int) []Offsets {
	if len(mergeAt) == 0 {
		return spans
	}
	merge := make(map[int]bool, len(mergeAt))
	for _, idx := range mergeAt {
		merge[idx] = true
	}
	out := make([]Offsets, 0, len(spans))
	i := 0
	for i < len(spans) {
		start := spans[i].Start
		end := spans[i].End
		for merge[i] && i+1 < len(spans) {
			i++
			end = spans[i].End
		}
		out = append(out, Offsets{Start: start, End: end})
		i++
	}
	return out
}

func codepointLen(s string) int {
	return utf8.RuneCountInString(s)
}

// packSentenceSpans implements spec.md §4.2.2 step 3: greedily accumulate
// spans into blocks targeting [min,target] codepoints, emitting early and
// carrying the most recently accumulated sentence forward into the next
// block when doing so keeps the current block at or above min.
func packSentenceSpans(text string, spans []Offsets) []TextBlock {
	var blocks []TextBlock
	var cur []Offsets
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		blocks = append(blocks, newSentenceBlock(text, cur[0].Start, cur[len(cur)-1].End))
		cur = nil
		curLen = 0
	}

	for _, sp := range spans {
		l := codepointLen(text[sp.Start:sp.End])
		if l > sentenceBlockMax {
			flush()
			blocks = append(blocks, newSentenceBlock(text, sp.Start, sp.End))
			continue
		}
		if len(cur) > 0 && curLen+l > sentenceBlockTarget {
			last := cur[len(cur)-1]
			lastLen := codepointLen(text[last.Start:last.End])
			if len(cur) > 1 && curLen-lastLen >= sentenceBlockMin {
				cur = cur[:len(cur)-1]
				curLen -= lastLen
				flush()
				cur = []Offsets{last}
				curLen = lastLen
			} else {
				flush()
			}
		}
		cur = append(cur, sp)
		curLen += l
	}
	flush()
	return renumberSentenceBlocks(blocks)
}

func newSentenceBlock(text string, start, end int) TextBlock {
	return TextBlock{
		Label:   LabelSentenceBlock,
		Offsets: Offsets{Start: start, End: end},
		Text:    text[start:end],
	}
}

func renumberSentenceBlocks(blocks []TextBlock) []TextBlock {
	for i := range blocks {
		blocks[i].ChunkID = i
	}
	return blocks
}

// BuildSentenceBlocks implements C2.2 end to end: obtain sentence spans
// (an external spanner, falling back to the local rule), optionally refine
// boundaries through an LLM collaborator, then pack the result into
// sentence blocks. spanner and refiner may both be nil.
func BuildSentenceBlocks(ctx context.Context, text, language string, spanner SentenceSpanner, refiner SentenceBoundaryRefiner) []TextBlock {
	spans := sentenceSpans(ctx, text, language, spanner)
	if refiner != nil {
		spans = refineSentenceSpans(ctx, text, spans, refiner)
	}
	return packSentenceSpans(text, spans)
}

func sentenceSpans(ctx context.Context, text, language string, spanner SentenceSpanner) []Offsets {
	if spanner != nil {
		callCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if spans, err := spanner.Spans(callCtx, text, language); err == nil && len(spans) > 0 {
			return spans
		}
	}
	return splitSentencesLocal(text)
}

func refineSentenceSpans(ctx context.Context, text string, spans []Offsets, refiner SentenceBoundaryRefiner) []Offsets {
	if len(spans) < 2 {
		return spans
	}
	texts := make([]string, len(spans))
	for i, sp := range spans {
		texts[i] = text[sp.Start:sp.End]
	}
	mergeAt, err := refiner.RefineBoundaries(ctx, texts)
	if err != nil || len(mergeAt) == 0 {
		return spans
	}
	return mergeSentenceSpans(spans, mergeAt)
}
