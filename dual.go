package aidetect

import "math"

// ComputeDualResult implements C6's comparison and fusion steps (spec.md
// §4.6) given the two passes' already-aggregated results. The concurrency
// that produces paraBlocks/paraScores and sentBlocks/sentScores lives in
// service.go; this function is pure.
func ComputeDualResult(paraBlocks []TextBlock, paraScores []SegmentScore, paraAgg Aggregation, sentBlocks []TextBlock, sentScores []SegmentScore, sentAgg Aggregation) DualResult {
	comparison := comparePasses(paraBlocks, paraScores, sentBlocks, sentScores, paraAgg, sentAgg)
	fused := fuseAggregations(paraAgg, sentAgg, len(sentScores) > 0)
	return DualResult{Paragraph: paraAgg, Sentence: sentAgg, Comparison: comparison, Fused: fused}
}

func comparePasses(paraBlocks []TextBlock, paraScores []SegmentScore, sentBlocks []TextBlock, sentScores []SegmentScore, paraAgg, sentAgg Aggregation) ComparisonResult {
	if len(sentScores) == 0 {
		return ComparisonResult{ConsistencyScore: 1.0}
	}

	diff := math.Abs(paraAgg.OverallProbability - sentAgg.OverallProbability)
	paraByChunk := indexBlocksByChunk(paraBlocks)
	sentByChunk := indexBlocksByChunk(sentBlocks)

	var agreements, comparable int
	var divergent []DivergentRegion
	for _, ps := range paraScores {
		pBlk, ok := paraByChunk[ps.ChunkID]
		if !ok {
			continue
		}
		for _, ss := range sentScores {
			sBlk, ok := sentByChunk[ss.ChunkID]
			if !ok {
				continue
			}
			inter := intersectLen(pBlk.Offsets, sBlk.Offsets)
			if inter == 0 {
				continue
			}
			covP := float64(inter) / float64(pBlk.Offsets.Len())
			covS := float64(inter) / float64(sBlk.Offsets.Len())
			if covP <= 0.5 || covS <= 0.5 {
				continue
			}
			comparable++
			if (ps.AIProbability > 0.5) == (ss.AIProbability > 0.5) {
				agreements++
			}
			if math.Abs(ps.AIProbability-ss.AIProbability) > 0.20 {
				divergent = append(divergent, DivergentRegion{
					ParagraphChunkID: ps.ChunkID,
					SentenceChunkID:  ss.ChunkID,
					ParagraphProb:    ps.AIProbability,
					SentenceProb:     ss.AIProbability,
					Preview:          previewText(sBlk.Text, 100),
				})
			}
		}
	}

	consistency := 1.0
	if comparable > 0 {
		consistency = float64(agreements) / float64(comparable)
	}
	return ComparisonResult{ProbabilityDiff: diff, ConsistencyScore: consistency, DivergentRegions: divergent}
}

func fuseAggregations(para, sent Aggregation, sentUsable bool) Aggregation {
	if !sentUsable {
		return para
	}
	overall := clamp(0.6*para.OverallProbability+0.4*sent.OverallProbability, 0.02, 0.98)
	conf := 0.6*para.OverallConfidence + 0.4*sent.OverallConfidence
	return Aggregation{
		OverallProbability: overall,
		OverallConfidence:  conf,
		Method:             Version,
		Thresholds:         para.Thresholds,
		BufferMargin:       para.BufferMargin,
		Decision:           decide(overall, para.Thresholds, para.BufferMargin),
	}
}

func indexBlocksByChunk(blocks []TextBlock) map[int]TextBlock {
	m := make(map[int]TextBlock, len(blocks))
	for _, b := range blocks {
		m[b.ChunkID] = b
	}
	return m
}

func intersectLen(a, b Offsets) int {
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

// previewText truncates s to at most maxCodepoints codepoints without
// splitting a multi-byte rune.
func previewText(s string, maxCodepoints int) string {
	if codepointLen(s) <= maxCodepoints {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxCodepoints])
}
