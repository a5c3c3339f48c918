package aidetect

// ScoreBlocksLocally implements C3 end to end: for every TextBlock, extract
// stylometry features, optionally the heuristic perplexity channel, and
// produce a seeded SegmentScore. usePerplexity/useStylometry mirror
// DetectRequest's optional-channel flags; stylometry is never skipped for
// the invariant fields (ttr, avg_sentence_len, ...) since the scoring table
// in score.go depends on it, but useStylometry still gates whether the
// feature computation is reported as a live channel in explanations.
func ScoreBlocksLocally(blocks []TextBlock, language string, usePerplexity, useStylometry bool) []SegmentScore {
	out := make([]SegmentScore, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, scoreBlockLocally(b, language, usePerplexity, useStylometry))
	}
	return out
}

func scoreBlockLocally(b TextBlock, language string, usePerplexity, useStylometry bool) SegmentScore {
	feats := ComputeStylometryFeatures(b.Text)
	var ppl PerplexitySignal
	if usePerplexity {
		ppl = ComputePerplexity(b.Text)
	}

	p, conf := ScoreLocal(b.Text, feats, ppl, usePerplexity)

	var explanations []string
	if !useStylometry {
		explanations = append(explanations, "stylometry_channel_disabled")
	}
	if !usePerplexity {
		explanations = append(explanations, "perplexity_channel_disabled")
	}

	return SegmentScore{
		ChunkID:        b.ChunkID,
		Language:       language,
		Offsets:        b.Offsets,
		AIProbability:  p,
		RawProbability: p,
		Confidence:     conf,
		Signals: Signals{
			Perplexity: ppl,
			Stylometry: feats,
		},
		Explanations: explanations,
	}
}
