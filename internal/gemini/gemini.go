// Package gemini is the client for the text-generation service used to
// summarize posts and suggest replies.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/muralapp/mural/internal/mural"
)

// CompletionError means every attempt against the text-generation
// service failed; it wraps the last underlying error.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("gemini api error: %s", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

type (
	// Client calls the generateContent endpoint with bounded retry.
	Client struct {
		endpoint string
		model    string
		apiKey   string
		http     *http.Client

		// Produces a fresh backoff per call so retry state never leaks
		// between requests. Swapped out in tests to avoid real waits.
		backoff func() retry.Backoff
	}

	Config struct {
		Endpoint string
		Model    string
		APIKey   string
	}
)

func NewClient(cfg Config) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		// 3 attempts total, waiting 1s then 2s in between.
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewExponential(time.Second))
		},
	}
}

// Complete sends the prompt and returns the generated text.
//
// Fails immediately with [mural.ErrMissingAPIKey] when no credential is
// configured; otherwise retries transient failures and wraps the last
// error in a [*CompletionError] once attempts run out.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", mural.ErrMissingAPIKey
	}

	var text string
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		out, err := c.generate(ctx, prompt)
		if err != nil {
			return retry.RetryableError(err)
		}
		text = out

		return nil
	})
	if err != nil {
		return "", &CompletionError{Err: err}
	}

	return text, nil
}

type (
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	part struct {
		Text string `json:"text"`
	}
	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
)

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("error encoding request: %s", err)
	}

	u := fmt.Sprintf("%s/%s:generateContent?key=%s", c.endpoint, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error building request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("error calling gemini: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("error decoding response: %s", err)
	}

	// A 200 without generated text at the expected path is still a
	// failed attempt, never an empty success.
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("invalid response format from gemini api")
	}
	text := genResp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("invalid response format from gemini api")
	}

	return text, nil
}
