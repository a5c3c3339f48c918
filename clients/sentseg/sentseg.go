// Package sentseg implements the optional external sentence-segmentation
// collaborator from spec.md §6: POST /segment with {text, language}, get
// back byte-offset sentence spans. It is always best-effort — segment_
// sentence.go applies the short timeout and silent fallback, not this
// package — so this client does no retrying of its own.
package sentseg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cheekai/aidetect"
)

// Client calls a single sentence-segmentation endpoint.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient builds a Client for the given /segment endpoint URL.
func NewClient(url string) *Client {
	return &Client{URL: url, HTTPClient: http.DefaultClient}
}

type segmentRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type segmentSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type segmentResponse struct {
	Sentences []segmentSpan `json:"sentences"`
}

// Spans implements aidetect.SentenceSpanner.
func (c *Client) Spans(ctx context.Context, text, language string) ([]aidetect.Offsets, error) {
	payload, err := json.Marshal(segmentRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("sentseg: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sentseg: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentseg: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentseg: status %d", resp.StatusCode)
	}

	var body segmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("sentseg: decode response: %w", err)
	}

	spans := make([]aidetect.Offsets, 0, len(body.Sentences))
	for _, s := range body.Sentences {
		spans = append(spans, aidetect.Offsets{Start: s.Start, End: s.End})
	}
	return spans, nil
}
