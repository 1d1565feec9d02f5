package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// Client is a minimal HTTP client for a local Ollama runtime, speaking the
// non-streaming /api/chat protocol.
type Client struct {
	httpClient *http.Client
	host       string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewClient creates a client targeting the given host (e.g.
// http://localhost:11434). Zero values fall back to sane defaults.
func NewClient(host string, timeout time.Duration, maxRetries int) *Client {
	if host == "" {
		host = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		host:       host,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   4 * time.Second,
	}
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes a single chat completion call. JSON asks the host to
// constrain the reply to valid JSON.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	JSON        bool
}

type chatPayload struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chat sends the request and returns the assistant's reply content. Network
// errors, 429, and 5xx responses are retried with jittered exponential
// backoff up to the configured retry budget.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if req.Model == "" {
		return "", errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return "", errors.New("messages cannot be empty")
	}

	payload := chatPayload{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
	}
	if req.JSON {
		payload.Format = "json"
	}
	if req.Temperature > 0 {
		payload.Options = map[string]any{"temperature": req.Temperature}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.host + "/api/chat"
	backoff := c.baseDelay
	attempts := c.maxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = &UnreachableError{Host: c.host, Err: err}
			if isRetryableNetErr(err) && attempt < attempts {
				backoff = c.sleep(backoff)
				continue
			}
			return "", lastErr
		}

		content, err := decodeChat(resp)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isRetryableStatusErr(err) || attempt == attempts {
			return "", lastErr
		}
		backoff = c.sleep(backoff)
	}
	return "", lastErr
}

func decodeChat(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Message.Content, nil
}

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if msg, ok := raw["error"].(string); ok {
		apiErr.Message = msg
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &ModelNotFoundError{APIError: apiErr}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr}
	case resp.StatusCode >= 500:
		return &ServerError{APIError: apiErr}
	case resp.StatusCode == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	default:
		return apiErr
	}
}

func isRetryableStatusErr(err error) bool {
	var rateLimited *RateLimitError
	var serverErr *ServerError
	return errors.As(err, &rateLimited) || errors.As(err, &serverErr)
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

func (c *Client) sleep(backoff time.Duration) time.Duration {
	time.Sleep(withJitter(backoff, c.maxDelay))
	next := backoff * 2
	if c.maxDelay > 0 && next > c.maxDelay {
		next = c.maxDelay
	}
	return next
}

// withJitter spreads a delay over [0.8, 1.2) of its value, capped at max.
func withJitter(d, max time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	out := time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if max > 0 && out > max {
		out = max
	}
	return out
}
