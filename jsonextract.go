package aidetect

import (
	"strings"

	"github.com/tidwall/gjson"
)

// extractJSONObject implements the tolerant fallback from spec.md §6: when
// an LLM response is not pure JSON, extract the first balanced {...} brace
// group and parse that instead.
func extractJSONObject(raw string) (gjson.Result, bool) {
	if gjson.Valid(raw) {
		return gjson.Parse(raw), true
	}
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return gjson.Result{}, false
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if gjson.Valid(candidate) {
					return gjson.Parse(candidate), true
				}
				return gjson.Result{}, false
			}
		}
	}
	return gjson.Result{}, false
}

// llmSegmentResult holds {chunk_id, probability, confidence?, uncertainty?}
// read by parseSegmentsResponse out of a single element of an LLM response's
// "segments" array.
type llmSegmentResult struct {
	ChunkID     int
	Probability float64
	Confidence  *float64
	Uncertainty *float64
	ok          bool
}

func parseSegmentsResponse(raw string) ([]llmSegmentResult, bool) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, false
	}
	segments := obj.Get("segments")
	if !segments.Exists() || !segments.IsArray() {
		return nil, false
	}
	var out []llmSegmentResult
	for _, seg := range segments.Array() {
		chunkID := seg.Get("chunk_id")
		prob := seg.Get("probability")
		if !chunkID.Exists() || !prob.Exists() {
			continue
		}
		r := llmSegmentResult{
			ChunkID:     int(chunkID.Int()),
			Probability: prob.Float(),
			ok:          true,
		}
		if c := seg.Get("confidence"); c.Exists() {
			v := c.Float()
			r.Confidence = &v
		}
		if u := seg.Get("uncertainty"); u.Exists() {
			v := u.Float()
			r.Uncertainty = &v
		}
		out = append(out, r)
	}
	return out, len(out) > 0
}
