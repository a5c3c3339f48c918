// Package openai implements the OpenAI-compatible chat-completions HTTP
// shape shared by the openai, glm, gemini, and anthropic provider entries
// in the registry (SPEC_FULL.md §4.8): a single POST to a configurable
// base URL with a bearer key and a JSON chat-completion body.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cheekai/aidetect/internal/retry"
	"github.com/google/uuid"
)

// Client is a minimal chat-completions client. BaseURL must include the
// scheme and host but not the /chat/completions suffix.
type Client struct {
	APIKey       string
	BaseURL      string
	DumpRequests bool
	HTTPClient   *http.Client
	RetryConfig  retry.Config
}

// NewClient builds a Client with the teacher's default retry table and a
// shared *http.Client.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		HTTPClient:  http.DefaultClient,
		RetryConfig: retry.DefaultConfig(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type,omitempty"`
}

type chatCompletionRequest struct {
	Model           string          `json:"model"`
	Messages        []chatMessage   `json:"messages"`
	Temperature     float32         `json:"temperature,omitempty"`
	ResponseFormat  *responseFormat `json:"response_format,omitempty"`
	ReasoningEffort string          `json:"reasoning_effort,omitempty"`
}

type chatCompletionChoice struct {
	Message chatMessage `json:"message"`
}

type chatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
}

type chatCompletionErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CompletionError wraps a non-2xx or malformed response with enough detail
// for C4's error classification (spec.md §4.4.4) to decide retryability.
type CompletionError struct {
	Message    string
	StatusCode int
	RawBody    []byte
}

func (e *CompletionError) Error() string { return e.Message }

// Call implements aidetect.LLMCaller. requireJSON asks the provider for a
// JSON-object response via response_format; it does not by itself validate
// that the content is well-formed JSON — the core's tolerant extractor
// handles that.
func (c *Client) Call(ctx context.Context, model, systemPrompt, userPrompt string, requireJSON, reasoning bool) (string, error) {
	req := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	if requireJSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if reasoning {
		req.ReasoningEffort = "high"
	}

	body, err := c.doRetryable(ctx, req)
	if err != nil {
		return "", err
	}
	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &CompletionError{Message: fmt.Sprintf("failed to parse completion response: %v", err), RawBody: body}
	}
	if len(resp.Choices) == 0 {
		return "", &CompletionError{Message: "completion response had no choices", RawBody: body}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) isRetryableError(err error, statusCode int, responseBody []byte) bool {
	if err != nil {
		return true
	}
	return statusCode >= 500 || statusCode == 429
}

func (c *Client) doRetryable(ctx context.Context, req chatCompletionRequest) ([]byte, error) {
	url := c.BaseURL + "/chat/completions"
	opts := retry.Options{
		Config:       c.RetryConfig,
		ErrorChecker: c.isRetryableError,
		Logger:       log.Printf,
		APIName:      "openai-compatible chat",
	}

	fn := func(attempt int) (any, int, []byte, error) {
		payload, err := json.Marshal(req)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("marshal chat request: %w", err)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, nil, fmt.Errorf("build chat request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient().Do(httpReq)
		if err != nil {
			return nil, 0, nil, err
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, nil, fmt.Errorf("read chat response: %w", err)
		}

		if c.DumpRequests {
			dumpRequest(req.Model, req, bodyBytes, resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			var errBody chatCompletionErrorBody
			_ = json.Unmarshal(bodyBytes, &errBody)
			return nil, resp.StatusCode, bodyBytes, &CompletionError{
				Message:    fmt.Sprintf("openai-compatible chat API error %d: %s", resp.StatusCode, errBody.Error.Message),
				StatusCode: resp.StatusCode,
				RawBody:    bodyBytes,
			}
		}
		return bodyBytes, resp.StatusCode, bodyBytes, nil
	}

	result, err := retry.Execute(ctx, opts, fn)
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// dumpRequest mirrors the teacher's debug-dump-to-disk behavior, redacting
// the bearer key before it ever reaches a file (the key never appears in
// the request body in the first place — only in the Authorization header —
// so the dump is safe by construction).
func dumpRequest(model string, req chatCompletionRequest, respBody []byte, statusCode int) {
	dir := filepath.Join("debug_llm_requests", model)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("debug dump: mkdir %s: %v", dir, err)
		return
	}
	var parsedResp any
	_ = json.Unmarshal(respBody, &parsedResp)

	record := map[string]any{
		"request":  req,
		"response": parsedResp,
		"status":   statusCode,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		log.Printf("debug dump: marshal: %v", err)
		return
	}
	name := fmt.Sprintf("openai_req_%s_%s.json", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		log.Printf("debug dump: write: %v", err)
	}
}
