package aidetect

import (
	"math"
	"sort"
)

// blockWeight implements spec.md §4.5.1: w_i = sqrt(max(len_bytes_i, 50)) *
// max(confidence_i, 0.3).
func blockWeight(lenBytes int, confidence float64) float64 {
	l := float64(lenBytes)
	if l < 50 {
		l = 50
	}
	c := confidence
	if c < 0.3 {
		c = 0.3
	}
	return math.Sqrt(l) * c
}

func weightedMeanF(values, weights []float64) float64 {
	var num, den float64
	for i := range values {
		num += values[i] * weights[i]
		den += weights[i]
	}
	if den == 0 {
		return 0.5
	}
	return num / den
}

// trimmedMean implements spec.md §4.5.2's robust mean: drop ceil(0.1N) top
// and bottom values when N >= 5. Callers must check N >= 5 themselves;
// below that, the weighted mean should be used in its place.
func trimmedMean(values []float64) float64 {
	n := len(values)
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	trim := int(math.Ceil(0.1 * float64(n)))
	kept := sorted[trim : n-trim]
	if len(kept) == 0 {
		kept = sorted
	}
	sum := 0.0
	for _, v := range kept {
		sum += v
	}
	return sum / float64(len(kept))
}

func logit(p float64) float64 {
	p = clamp(p, 0.001, 0.999)
	return math.Log(p / (1 - p))
}

func sigmoidStd(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// decide implements the fixed decision rule from spec.md §4.5.4 /
// universal invariant in §8: pass iff overall < low-margin, flag iff
// overall >= high-margin, else review.
func decide(overall float64, t Thresholds, margin float64) Decision {
	switch {
	case overall < t.Low-margin:
		return DecisionPass
	case overall >= t.High-margin:
		return DecisionFlag
	default:
		return DecisionReview
	}
}

// sharpenContrast implements spec.md §4.5.3: scale each block's deviation
// from the weighted-mean logit by gamma, then binary-search a constant
// logit-space offset that restores the pre-sharpening weighted mean in
// probability space. Blocks with confidence < 0.5 get only a 20% dose of
// the sharpened value, blended with 80% of their raw (pre-sharpening)
// probability.
func sharpenContrast(scores []SegmentScore, weights []float64, gamma float64) []float64 {
	n := len(scores)
	logits := make([]float64, n)
	rawProbs := make([]float64, n)
	for i, s := range scores {
		rawProbs[i] = clamp(s.RawProbability, 0.02, 0.98)
		logits[i] = logit(rawProbs[i])
	}
	meanLogit := weightedMeanF(logits, weights)
	target := weightedMeanF(rawProbs, weights)

	sharpenedLogitAt := func(offset float64) []float64 {
		out := make([]float64, n)
		for i, lg := range logits {
			out[i] = meanLogit + gamma*(lg-meanLogit) + offset
		}
		return out
	}
	probsAt := func(offset float64) []float64 {
		sl := sharpenedLogitAt(offset)
		probs := make([]float64, n)
		for i, lg := range sl {
			probs[i] = sigmoidStd(lg)
		}
		return probs
	}

	lo, hi := -10.0, 10.0
	var offset float64
	for iter := 0; iter < 50; iter++ {
		offset = (lo + hi) / 2
		wm := weightedMeanF(probsAt(offset), weights)
		if wm < target {
			lo = offset
		} else {
			hi = offset
		}
	}

	final := probsAt(offset)
	for i, s := range scores {
		if s.Confidence < 0.5 {
			final[i] = 0.2*final[i] + 0.8*rawProbs[i]
		}
		final[i] = clamp(final[i], 0.02, 0.98)
	}
	return final
}

// Aggregate implements C5 end to end (spec.md §4.5). scores must already
// exclude filtered blocks; the caller (the paragraph or sentence pass
// driver) is responsible for that split. It returns the scores with
// AIProbability overwritten by contrast sharpening for every block that has
// no LLM-channel result (Signals.LLM.Prob unset); a block scored by the LLM
// or by an embedding-cache hit keeps that probability. It also returns the
// pass summary, computed from RawProbability.
func Aggregate(scores []SegmentScore, sensitivity Sensitivity) ([]SegmentScore, Aggregation) {
	thresholds := DefaultThresholds()
	if len(scores) == 0 {
		return scores, Aggregation{
			OverallProbability: 0.5,
			OverallConfidence:  0,
			Method:             Version,
			Thresholds:         thresholds,
			BufferMargin:       DefaultBufferMargin,
			Decision:           DecisionReview,
		}
	}

	weights := make([]float64, len(scores))
	probs := make([]float64, len(scores))
	confidences := make([]float64, len(scores))
	for i, s := range scores {
		weights[i] = blockWeight(s.Offsets.Len(), s.Confidence)
		probs[i] = clamp(s.RawProbability, 0.02, 0.98)
		confidences[i] = s.Confidence
	}

	muW := weightedMeanF(probs, weights)
	muT := muW
	if len(scores) >= 5 {
		muT = trimmedMean(probs)
	}
	overall := clamp(0.7*muW+0.3*muT, 0.02, 0.98)
	overallConfidence := weightedMeanF(confidences, weights)

	sharpened := sharpenContrast(scores, weights, sharpenGamma(sensitivity))
	out := make([]SegmentScore, len(scores))
	copy(out, scores)
	for i := range out {
		if out[i].Signals.LLM.Prob != nil {
			continue
		}
		out[i].AIProbability = sharpened[i]
	}

	agg := Aggregation{
		OverallProbability: overall,
		OverallConfidence:  overallConfidence,
		Method:             Version,
		Thresholds:         thresholds,
		BufferMargin:       DefaultBufferMargin,
		Decision:           decide(overall, thresholds, DefaultBufferMargin),
	}
	return out, agg
}
