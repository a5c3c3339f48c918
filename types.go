package aidetect

// Offsets is a UTF-8 byte span, 0-based, end-exclusive, into the normalized
// text. End always lies on a codepoint boundary.
type Offsets struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the byte length of the span.
func (o Offsets) Len() int {
	return o.End - o.Start
}

// BlockLabel classifies a TextBlock's role in the document.
type BlockLabel string

const (
	LabelParagraphBody BlockLabel = "paragraph_body"
	LabelShortTitle    BlockLabel = "short_title"
	LabelSentenceBlock BlockLabel = "sentence_block"
	LabelFiltered      BlockLabel = "filtered"
)

// TextBlock is a contiguous, offset-anchored span of normalized text,
// produced once by the Segmenter and never mutated afterward.
type TextBlock struct {
	ChunkID int        `json:"chunkId"`
	Label   BlockLabel `json:"label"`
	Offsets Offsets    `json:"offsets"`
	Text    string     `json:"text"`
}

// StylometryFeatures is the numeric fingerprint of a block computed by the
// Local Scorer (C3).
type StylometryFeatures struct {
	TTR               float64 `json:"ttr"`
	AvgSentenceLen    float64 `json:"avgSentenceLen"`
	RepeatRatio       float64 `json:"repeatRatio"`
	NgramRepeatRate   float64 `json:"ngramRepeatRate"`
	FunctionWordRatio float64 `json:"functionWordRatio"`
	PunctuationRatio  float64 `json:"punctuationRatio"`
}

// PerplexitySignal carries the heuristic perplexity channel.
type PerplexitySignal struct {
	PPL float64  `json:"ppl"`
	Z   *float64 `json:"z,omitempty"`
}

// LLMSignal carries the external-model judgment for a block, when present.
type LLMSignal struct {
	Prob     *float64       `json:"prob,omitempty"`
	Models   []string       `json:"models,omitempty"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// Signals bundles every scoring channel that contributed to a SegmentScore.
type Signals struct {
	LLM         LLMSignal          `json:"llm"`
	Perplexity  PerplexitySignal   `json:"perplexity"`
	Stylometry  StylometryFeatures `json:"stylometry"`
}

// SegmentScore is the per-block scoring result. It is created in C3 seeded
// from the local score, mutated at most once by C4 if LLM fusion runs, and
// read-only thereafter.
type SegmentScore struct {
	ChunkID        int      `json:"chunkId"`
	Language       string   `json:"language"`
	Offsets        Offsets  `json:"offsets"`
	AIProbability  float64  `json:"aiProbability"`
	RawProbability float64  `json:"rawProbability"`
	Confidence     float64  `json:"confidence"`
	Uncertainty    *float64 `json:"uncertainty,omitempty"`
	Signals        Signals  `json:"signals"`
	Explanations   []string `json:"explanations"`
}

// Decision is the pass/review/flag verdict derived from an overall probability.
type Decision string

const (
	DecisionPass   Decision = "pass"
	DecisionReview Decision = "review"
	DecisionFlag   Decision = "flag"
)

// Thresholds are the probability cutoffs used to derive a Decision.
type Thresholds struct {
	Low      float64 `json:"low"`
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	VeryHigh float64 `json:"veryHigh"`
}

// DefaultThresholds returns the fixed thresholds from spec.md §3.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.65, Medium: 0.75, High: 0.85, VeryHigh: 0.90}
}

const DefaultBufferMargin = 0.03

// Aggregation is the per-pass summary produced by the Aggregator (C5).
type Aggregation struct {
	OverallProbability float64    `json:"overallProbability"`
	OverallConfidence  float64    `json:"overallConfidence"`
	Method             string     `json:"method"`
	Thresholds         Thresholds `json:"thresholds"`
	BufferMargin       float64    `json:"bufferMargin"`
	Decision           Decision   `json:"decision"`
}

// DivergentRegion is a paragraph/sentence pair with large disagreement in
// AI probability over overlapping text.
type DivergentRegion struct {
	ParagraphChunkID int     `json:"paragraphChunkId"`
	SentenceChunkID  int     `json:"sentenceChunkId"`
	ParagraphProb    float64 `json:"paragraphProb"`
	SentenceProb     float64 `json:"sentenceProb"`
	Preview          string  `json:"preview"`
}

// ComparisonResult compares the paragraph pass against the sentence pass.
type ComparisonResult struct {
	ProbabilityDiff   float64           `json:"probabilityDiff"`
	ConsistencyScore  float64           `json:"consistencyScore"`
	DivergentRegions  []DivergentRegion `json:"divergentRegions"`
}

// DualResult bundles the paragraph and sentence aggregations, their
// comparison, and the fused aggregation (weights paragraph=0.6, sentence=0.4).
type DualResult struct {
	Paragraph  Aggregation       `json:"paragraph"`
	Sentence   Aggregation       `json:"sentence"`
	Comparison ComparisonResult  `json:"comparison"`
	Fused      Aggregation       `json:"fused"`
}

// PreprocessSummary reports what C1/C2 did to the input.
type PreprocessSummary struct {
	Language string `json:"language"`
	Chunks   int    `json:"chunks"`
	Redacted int    `json:"redacted"`
}

// Cost reports token/latency accounting for a detection, including a
// per-provider breakdown of fallbacks (PartialLLMFailure surfacing).
type Cost struct {
	Tokens             int            `json:"tokens"`
	LatencyMs          int64          `json:"latencyMs"`
	ProviderBreakdown  map[string]int `json:"providerBreakdown,omitempty"`
}

// FilterSummary counts the FilterHints the caller attached to its paragraph
// strings (see DetectRequest.ParagraphHints), per spec.md §9. Reference and
// toc paragraphs are excluded from aggregation; title paragraphs are merged
// into the following body block like any short-title-like block.
type FilterSummary struct {
	TitlesLike int `json:"titlesLike"`
	References int `json:"references"`
	TOC        int `json:"toc"`
}

// Sensitivity tunes contrast-sharpening strength (sharpenGamma). It does not
// change how an LLM result and a local score are combined (see fusionWeight).
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// FilterHint is an external preprocessing classification attached to a
// paragraph string by the caller (spec.md §9: "an external preprocessing
// hint... not part of the core").
type FilterHint string

const (
	FilterHintNone      FilterHint = ""
	FilterHintTitle     FilterHint = "title"
	FilterHintReference FilterHint = "reference"
	FilterHintTOC       FilterHint = "toc"
)

// DetectRequest is the input to Detect and DetectDualMode.
type DetectRequest struct {
	Text           string
	ParagraphHints []FilterHint // optional, aligned to caller-provided paragraph strings
	Paragraphs     []string     // optional pre-split paragraphs; falls back to C2.1 when nil
	UsePerplexity  bool
	UseStylometry  bool
	Sensitivity    Sensitivity
	Provider       string // "name:model", e.g. "deepseek:deepseek-chat"
	DualMode       bool
}

// DetectResponse is the output of Detect and DetectDualMode.
type DetectResponse struct {
	Aggregation       Aggregation        `json:"aggregation"`
	Segments          []SegmentScore     `json:"segments"`
	PreprocessSummary PreprocessSummary  `json:"preprocessSummary"`
	Cost              Cost               `json:"cost"`
	Version           string             `json:"version"`
	RequestID         string             `json:"requestId"`
	DualDetection     *DualResult        `json:"dualDetection,omitempty"`
	FilterSummary     *FilterSummary     `json:"filterSummary,omitempty"`
}

// Version identifies the aggregation algorithm, surfaced in
// DetectResponse.Version and Aggregation.Method.
const Version = "aidetect-1.0"
