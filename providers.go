package aidetect

import (
	"context"
	"errors"
)

// LLMCaller is the capability record from spec.md §9: call(provider, model,
// system, user, timeout) -> {json_text} or Error, parameterized by
// (provider, model, url, key) rather than a polymorphic client hierarchy.
// Concrete implementations live in clients/openai and clients/groq; the
// timeout is applied by the caller via ctx, not as a parameter here.
type LLMCaller interface {
	Call(ctx context.Context, model, systemPrompt, userPrompt string, requireJSON, reasoning bool) (string, error)
}

// ProviderRegistry maps a provider name (as it appears in the "name:model"
// provider spec) to the capability that serves it.
type ProviderRegistry map[string]LLMCaller

// Caller looks up the registered capability for a provider name.
func (r ProviderRegistry) Caller(provider string) (LLMCaller, error) {
	c, ok := r[provider]
	if !ok {
		return nil, errors.New("no LLM capability registered for provider " + provider)
	}
	return c, nil
}

// ReasoningTier selects between the "fast model" and "reasoning model"
// routing rows in spec.md §4.4.2's length table. Rather than fabricate a
// second model identifier per provider, this implementation asks the same
// configured model for a higher reasoning effort on the long-block tier —
// every OpenAI-compatible and Groq-compatible request shape in this module
// already carries a ReasoningEffort field for exactly this purpose.
type ReasoningTier int

const (
	TierFast ReasoningTier = iota
	TierReasoning
)
