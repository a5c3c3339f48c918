package aidetect

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEmbeddingCacheSimilarity is the cosine-similarity floor for the
// optional embedding cache (§4.7) to treat a block as "already judged".
const DefaultEmbeddingCacheSimilarity = 0.92

// DefaultDuplicateClusterSimilarity is the floor used when unioning blocks
// into a near-duplicate cluster for the "duplicated_boilerplate_cluster"
// explanation tag.
const DefaultDuplicateClusterSimilarity = 0.97

// envAliases lists the provider environment variable names LoadConfig
// resolves. Each has a CHEEKAI_-prefixed override (see resolveEnv), per
// spec.md §6. The prefixed name always wins when both are set.
var envAliases = []string{
	"GLM_API_KEY",
	"DEEPSEEK_API_KEY",
	"OPENAI_API_KEY",
	"GEMINI_API_KEY",
	"ANTHROPIC_API_KEY",
}

// Config holds every input the core needs that is not part of a single
// DetectRequest: provider credentials, optional collaborator clients, and
// feature flags. It is a snapshot taken at the start of a detection
// (spec.md §5: "API keys and URLs are configuration snapshots").
type Config struct {
	// EmbeddingClient and VectorClient back the optional embedding cache
	// (§4.7). Both must be set for the cache to activate.
	EmbeddingClient EmbeddingClient
	VectorClient    VectorClient
	UseEmbeddingCache bool

	// SentenceSpanner, when set, is tried first for C2.2 sentence splitting
	// before falling back to the local rule (typically clients/sentseg).
	SentenceSpanner SentenceSpanner

	// DisableSentenceLLMRefine mirrors DISABLE_SENTENCE_LLM_REFINE=1.
	DisableSentenceLLMRefine bool

	// DebugDumpRequests mirrors the teacher's DumpRequests flag: when set,
	// every LLM request/response is written to disk for offline inspection,
	// with API keys redacted.
	DebugDumpRequests bool

	apiKeys map[string]string
}

// LoadConfig loads a .env file if present (a missing file is not an error
// for library use, unlike the teacher's own throwaway main.go) and resolves
// provider API keys from the environment, honoring CHEEKAI_ prefixes.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{apiKeys: make(map[string]string)}
	for _, name := range envAliases {
		cfg.apiKeys[name] = resolveEnv(name)
	}
	cfg.DisableSentenceLLMRefine = os.Getenv("DISABLE_SENTENCE_LLM_REFINE") == "1" ||
		os.Getenv("CHEEKAI_DISABLE_SENTENCE_LLM_REFINE") == "1"
	cfg.DebugDumpRequests = os.Getenv("DEBUG_DUMP_REQUESTS") == "1" ||
		os.Getenv("CHEEKAI_DEBUG_DUMP_REQUESTS") == "1"
	return cfg
}

// resolveEnv returns the CHEEKAI_-prefixed variable if set, else the bare
// name, per spec.md §6 ("each key has a CHEEKAI_-prefixed alias, which takes
// precedence").
func resolveEnv(name string) string {
	if v := os.Getenv("CHEEKAI_" + name); v != "" {
		return v
	}
	return os.Getenv(name)
}

// APIKey returns the resolved key for a provider's environment variable
// name (e.g. "OPENAI_API_KEY").
func (c *Config) APIKey(envName string) string {
	if c.apiKeys == nil {
		return resolveEnv(envName)
	}
	if v, ok := c.apiKeys[envName]; ok {
		return v
	}
	return resolveEnv(envName)
}

// ParseSensitivity validates and normalizes a sensitivity string, defaulting
// to medium when empty.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "medium":
		return SensitivityMedium, nil
	case "low":
		return SensitivityLow, nil
	case "high":
		return SensitivityHigh, nil
	default:
		return "", &InvalidInputError{Reason: "unknown sensitivity " + s}
	}
}

// ParseProvider splits a "name:model" spec into its parts. An empty spec is
// valid and means "no LLM channel" (local-only scoring).
func ParseProvider(spec string) (name, model string, err error) {
	if spec == "" {
		return "", "", nil
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &InvalidInputError{Reason: "malformed provider spec " + spec}
	}
	return parts[0], parts[1], nil
}

// fusionWeight returns the sensitivity-driven LLM/local blend weight table
// (Open Question resolution, spec.md §9 / SPEC_FULL.md §9). It is the weight
// given to the LOCAL score; the LLM/cache score gets 1-weight. No stage of the
// pipeline calls it: an LLM or embedding-cache result replaces the local
// probability outright, and cache lookups are hit-or-miss with no near-hit
// blend.
func fusionWeight(s Sensitivity) float64 {
	switch s {
	case SensitivityLow:
		return 0.65
	case SensitivityHigh:
		return 0.15
	default:
		return 0.35
	}
}

// sharpenGamma returns the contrast-sharpening strength for a sensitivity,
// per spec.md §4.5.3.
func sharpenGamma(s Sensitivity) float64 {
	switch s {
	case SensitivityLow:
		return 1.10
	case SensitivityHigh:
		return 1.75
	default:
		return 1.45
	}
}
