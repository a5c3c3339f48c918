package aidetect

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var paragraphSepRe = regexp.MustCompile(`\n{2,}`)

// hasSentenceTerminal reports whether s contains any of {. ! ? 。 ！ ？} from
// spec.md §4.2.1.
func hasSentenceTerminal(s string) bool {
	for _, r := range s {
		switch r {
		case '.', '!', '?', '。', '！', '？':
			return true
		}
	}
	return false
}

func nonWhitespaceRuneCount(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// isShortTitleLike implements the predicate from spec.md §4.2.1 step 3.
func isShortTitleLike(text string) bool {
	return nonWhitespaceRuneCount(text) < 20 && !hasSentenceTerminal(text)
}

type paragraphCandidate struct {
	start, end   int
	hint         FilterHint
	isShortTitle bool
}

// trimOffsets advances/retracts start and end past ASCII whitespace without
// rebuilding the underlying text, so offsets remain anchored to the input
// (spec.md §4.2.1 step 2). Whitespace here is single-byte ASCII, so byte-wise
// trimming never crosses a codepoint boundary.
func trimOffsets(text string, start, end int) (int, int) {
	for start < end && isASCIITrimByte(text[start]) {
		start++
	}
	for end > start && isASCIITrimByte(text[end-1]) {
		end--
	}
	return start, end
}

func isASCIITrimByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// BuildParagraphBlocks implements C2.1: split on runs of >=2 LF, trim each
// candidate's offsets, merge short-title-like blocks into an adjacent body
// block, and densely renumber chunk_id from 0.
func BuildParagraphBlocks(text string) []TextBlock {
	return buildParagraphBlocksFromCandidates(text, splitParagraphCandidates(text))
}

// BuildParagraphBlocksFromStrings builds paragraph blocks from a caller-
// supplied list of already-split paragraph strings (spec.md §1: "the core
// accepts... an optional list of paragraph strings"), locating each one's
// offsets by sequential substring search, and attaching an optional
// FilterHint per paragraph (SPEC_FULL.md §4.9).
func BuildParagraphBlocksFromStrings(text string, paragraphs []string, hints []FilterHint) ([]TextBlock, error) {
	candidates := make([]paragraphCandidate, 0, len(paragraphs))
	cursor := 0
	for i, p := range paragraphs {
		idx := strings.Index(text[cursor:], p)
		if idx < 0 {
			return nil, &SegmenterError{Reason: "supplied paragraph not found in normalized text at index " + strconv.Itoa(i)}
		}
		start := cursor + idx
		end := start + len(p)
		hint := FilterHintNone
		if i < len(hints) {
			hint = hints[i]
		}
		candidates = append(candidates, paragraphCandidate{start: start, end: end, hint: hint})
		cursor = end
	}
	return buildParagraphBlocksFromCandidates(text, candidates), nil
}

func splitParagraphCandidates(text string) []paragraphCandidate {
	seps := paragraphSepRe.FindAllStringIndex(text, -1)
	candidates := make([]paragraphCandidate, 0, len(seps)+1)
	cursor := 0
	for _, sep := range seps {
		candidates = append(candidates, paragraphCandidate{start: cursor, end: sep[0]})
		cursor = sep[1]
	}
	candidates = append(candidates, paragraphCandidate{start: cursor, end: len(text)})
	return candidates
}

func buildParagraphBlocksFromCandidates(text string, candidates []paragraphCandidate) []TextBlock {
	type block struct {
		start, end   int
		label        BlockLabel
		isShortTitle bool
	}

	var blocks []block
	for _, c := range candidates {
		start, end := trimOffsets(text, c.start, c.end)
		if start >= end {
			continue
		}
		label := LabelParagraphBody
		isShort := isShortTitleLike(text[start:end]) || c.hint == FilterHintTitle
		if c.hint == FilterHintReference || c.hint == FilterHintTOC {
			label = LabelFiltered
			isShort = false
		}
		blocks = append(blocks, block{start: start, end: end, label: label, isShortTitle: isShort})
	}

	// Merge consecutive short-title-like blocks forward into the next body
	// block (extending its start backward); if there is no next body block,
	// merge backward into the previous body block (spec.md §4.2.1 step 3).
	merged := make([]block, 0, len(blocks))
	var pendingStart = -1
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		if b.isShortTitle && b.label != LabelFiltered {
			if pendingStart < 0 {
				pendingStart = b.start
			}
			continue
		}
		if pendingStart >= 0 {
			b.start = pendingStart
			pendingStart = -1
		}
		merged = append(merged, b)
	}
	if pendingStart >= 0 {
		if len(merged) > 0 {
			merged[len(merged)-1].end = blocks[len(blocks)-1].end
		} else {
			// No body block anywhere: keep the short-title run as-is.
			merged = append(merged, block{start: pendingStart, end: blocks[len(blocks)-1].end, label: LabelShortTitle})
		}
	}

	out := make([]TextBlock, 0, len(merged))
	for i, b := range merged {
		out = append(out, TextBlock{
			ChunkID: i,
			Label:   b.label,
			Offsets: Offsets{Start: b.start, End: b.end},
			Text:    text[b.start:b.end],
		})
	}
	return out
}

