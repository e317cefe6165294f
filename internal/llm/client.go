package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// Client communicates with an OpenAI-compatible provider over HTTP.
// It is used for both chat completions and embeddings.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	backoff    time.Duration
}

// NewClient creates a provider client for the given base URL and API key.
// baseURL points at the API root, e.g. "https://api.openai.com/v1".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		timeout: defaultTimeout,
		backoff: initialBackoff,
	}
}

// Chat sends a chat completion request and returns the assistant message from
// the first choice. Rate-limited requests are retried with exponential backoff;
// every other failure is returned as an *UpstreamError.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (Message, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Message{}, fmt.Errorf("marshaling chat request: %w", err)
	}

	for attempt := range maxRetries {
		msg, err := c.doChat(ctx, body)
		if err == nil {
			return msg, nil
		}

		if !isRateLimit(err) {
			return Message{}, err
		}

		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return Message{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	// Exhausted retries are still a provider failure and classify as such.
	return Message{}, &UpstreamError{
		Op:     "chat",
		Status: http.StatusTooManyRequests,
		Detail: fmt.Sprintf("rate limited after %d retries", maxRetries),
	}
}

// Complete is a convenience wrapper over Chat for tool-less single completions.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, temperature float64) (string, error) {
	msg, err := c.Chat(ctx, ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (c *Client) doChat(ctx context.Context, body []byte) (Message, error) {
	respBody, err := c.post(ctx, "/chat/completions", "chat", body)
	if err != nil {
		return Message{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Message{}, &UpstreamError{Op: "chat", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return Message{}, &UpstreamError{Op: "chat", Detail: "response contained no choices"}
	}
	return parsed.Choices[0].Message, nil
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	respBody, err := c.post(ctx, "/embeddings", "embed", body)
	if err != nil {
		return nil, err
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &UpstreamError{Op: "embed", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(parsed.Data) == 0 {
		return nil, &UpstreamError{Op: "embed", Detail: "response contained no embedding data"}
	}
	return parsed.Data[0].Embedding, nil
}

// post executes one request with a per-call timeout and returns the response
// body. Non-2xx statuses become *UpstreamError carrying the provider detail.
func (c *Client) post(ctx context.Context, path, op string, body []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{status: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Detail: providerDetail(respBody)}
	}
	return respBody, nil
}

// providerDetail extracts the error message from a provider error body,
// falling back to the raw body when it doesn't match the expected shape.
func providerDetail(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}
