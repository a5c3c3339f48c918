package aidetect

import "fmt"

// InvalidInputError covers empty text, unknown sensitivity, or a malformed
// provider spec.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// BusyError is returned when a detection is attempted while another is
// already in flight (the single-permit semaphore in service.go).
type BusyError struct{}

func (e *BusyError) Error() string {
	return "a detection is already in progress"
}

// SegmenterError covers an impossible post-condition from C1/C2 (offsets out
// of range, a split mid-codepoint). Per spec.md §7 this is always a bug.
type SegmenterError struct {
	Reason string
}

func (e *SegmenterError) Error() string {
	return "segmenter invariant violated: " + e.Reason
}

// ProviderTransientError covers transport errors, timeouts, 5xx, and 429s.
// It is retried inside C4 and never escapes a completed detection.
type ProviderTransientError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *ProviderTransientError) Error() string {
	return fmt.Sprintf("provider %s transient failure (status %d): %v", e.Provider, e.StatusCode, e.Cause)
}

func (e *ProviderTransientError) Unwrap() error { return e.Cause }

// ProviderFatalError covers non-retryable provider failures: 4xx other than
// 429, JSON parse failures, or missing fields.
type ProviderFatalError struct {
	Provider string
	Cause    error
}

func (e *ProviderFatalError) Error() string {
	return fmt.Sprintf("provider %s fatal failure: %v", e.Provider, e.Cause)
}

func (e *ProviderFatalError) Unwrap() error { return e.Cause }

// ProviderError is returned by Detect when the request's provider spec names
// a provider with no registered LLMCaller. A failing LLM call does not
// produce it: the passes fall back to the local score and tag the affected
// segments instead.
type ProviderError struct {
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s error: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// PartialLLMFailure is non-fatal: some segments fell back to their local
// score. It is never returned as an error — it is surfaced via per-segment
// explanation tags and Cost.ProviderBreakdown — but is kept as a named type
// so callers can recognize the condition if they choose to inspect it.
type PartialLLMFailure struct {
	FallbackCount int
	TotalCount    int
}

func (e *PartialLLMFailure) Error() string {
	return fmt.Sprintf("%d/%d segments fell back to local scoring", e.FallbackCount, e.TotalCount)
}
