// Package groq implements the Groq-compatible chat-completions shape used
// to reach DeepSeek models through a Groq-style gateway (SPEC_FULL.md §4.8),
// including the json_schema-forced response variant the core uses when it
// needs strictly structured output from the sentence and paragraph passes.
package groq

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

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Client is a minimal Groq-compatible chat-completions client.
type Client struct {
	APIKey       string
	BaseURL      string
	DumpRequests bool
	HTTPClient   *http.Client
	RetryConfig  retry.Config
}

// NewClient builds a Client pointed at Groq's own endpoint by default;
// BaseURL may be overridden to reach another Groq-compatible gateway.
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:      apiKey,
		BaseURL:     defaultBaseURL,
		HTTPClient:  http.DefaultClient,
		RetryConfig: retry.DefaultConfig(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// jsonSchemaDef is a minimal recursive JSON-Schema node, enough to describe
// the fixed {"segments":[{chunk_id,probability,confidence}]} shape the
// core's LLM passes ask for (spec.md §4.4.1).
type jsonSchemaDef struct {
	Type       string                   `json:"type,omitempty"`
	Properties map[string]jsonSchemaDef `json:"properties,omitempty"`
	Items      *jsonSchemaDef           `json:"items,omitempty"`
	Required   []string                 `json:"required,omitempty"`
}

type jsonSchemaWrapper struct {
	Name   string        `json:"name"`
	Strict bool          `json:"strict,omitempty"`
	Schema jsonSchemaDef `json:"schema"`
}

type responseFormat struct {
	Type       string             `json:"type,omitempty"`
	JsonSchema *jsonSchemaWrapper `json:"json_schema,omitempty"`
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
		Message          string `json:"message"`
		FailedGeneration string `json:"failed_generation,omitempty"`
	} `json:"error"`
}

// CompletionError wraps a non-2xx or malformed response.
type CompletionError struct {
	Message    string
	StatusCode int
	RawBody    []byte
}

func (e *CompletionError) Error() string { return e.Message }

// segmentResponseSchema describes {"segments":[{"chunk_id":int,
// "probability":number,"confidence":number}]}, the structured shape every
// LLM pass in this module asks for.
func segmentResponseSchema() *jsonSchemaWrapper {
	segment := jsonSchemaDef{
		Type: "object",
		Properties: map[string]jsonSchemaDef{
			"chunk_id":    {Type: "integer"},
			"probability": {Type: "number"},
			"confidence":  {Type: "number"},
		},
		Required: []string{"chunk_id", "probability"},
	}
	root := jsonSchemaDef{
		Type: "object",
		Properties: map[string]jsonSchemaDef{
			"segments": {Type: "array", Items: &segment},
		},
		Required: []string{"segments"},
	}
	return &jsonSchemaWrapper{Name: "segment_scores", Strict: false, Schema: root}
}

// Call implements aidetect.LLMCaller.
func (c *Client) Call(ctx context.Context, model, systemPrompt, userPrompt string, requireJSON, reasoning bool) (string, error) {
	req := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	if requireJSON {
		req.ResponseFormat = &responseFormat{Type: "json_schema", JsonSchema: segmentResponseSchema()}
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
	if statusCode >= 500 || statusCode == 429 {
		return true
	}
	if responseBody != nil {
		var errBody chatCompletionErrorBody
		if json.Unmarshal(responseBody, &errBody) == nil && errBody.Error.FailedGeneration != "" {
			return true
		}
	}
	return false
}

func (c *Client) doRetryable(ctx context.Context, req chatCompletionRequest) ([]byte, error) {
	url := c.BaseURL + "/chat/completions"
	opts := retry.Options{
		Config:       c.RetryConfig,
		ErrorChecker: c.isRetryableError,
		Logger:       log.Printf,
		APIName:      "groq-compatible chat",
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
				Message:    fmt.Sprintf("groq-compatible chat API error %d: %s", resp.StatusCode, errBody.Error.Message),
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
	name := fmt.Sprintf("groq_req_%s_%s.json", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		log.Printf("debug dump: write: %v", err)
	}
}
