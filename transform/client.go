package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to an OpenAI-compatible chat-completions endpoint. The
// timeout lives on the http.Client so a provider that never answers still
// resolves the call instead of pinning a send forever.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string        `json:"message"`
	Type    string        `json:"type"`
	Code    string        `json:"code,omitempty"`
	Status  string        `json:"status,omitempty"`
	Details []errorDetail `json:"details,omitempty"`
}

// errorDetail carries provider-specific structured details. Google-style
// backends attach a RetryInfo entry with the delay to wait before retrying.
type errorDetail struct {
	Type       string `json:"@type"`
	RetryDelay string `json:"retryDelay,omitempty"`
}

// RateLimitError is the decoded form of a quota-exhausted provider answer.
type RateLimitError struct {
	RetryAfter *time.Duration
	Detail     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s", e.Detail)
}

// Completion is a successful provider answer plus whatever quota counters
// the provider chose to report.
type Completion struct {
	Text      string
	Remaining *int
	Limit     *int
}

// Complete sends a single one-shot completion: one system instruction, one
// user message, no conversation state.
func (c *Client) Complete(ctx context.Context, system, user string) (*Completion, error) {
	body, err := json.Marshal(&chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, decodeRateLimit(resp, respBody)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("provider error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("provider error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return nil, fmt.Errorf("provider returned no choices")
	}

	return &Completion{
		Text:      result.Choices[0].Message.Content,
		Remaining: headerInt(resp, "X-Ratelimit-Remaining-Requests"),
		Limit:     headerInt(resp, "X-Ratelimit-Limit-Requests"),
	}, nil
}

// decodeRateLimit turns a 429 answer into a tagged RateLimitError. The
// retry delay comes from the Retry-After header when present, otherwise
// from a RetryInfo detail in the error body.
func decodeRateLimit(resp *http.Response, body []byte) *RateLimitError {
	out := &RateLimitError{Detail: "Rate limit exceeded"}

	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			d := time.Duration(secs) * time.Second
			out.RetryAfter = &d
		}
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == nil {
		return out
	}
	if errResp.Error.Message != "" {
		out.Detail = errResp.Error.Message
	}
	if out.RetryAfter == nil {
		for _, detail := range errResp.Error.Details {
			if !strings.HasSuffix(detail.Type, "RetryInfo") || detail.RetryDelay == "" {
				continue
			}
			if secs, err := strconv.Atoi(strings.TrimSuffix(detail.RetryDelay, "s")); err == nil {
				d := time.Duration(secs) * time.Second
				out.RetryAfter = &d
			}
		}
	}
	return out
}

func headerInt(resp *http.Response, name string) *int {
	raw := resp.Header.Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
