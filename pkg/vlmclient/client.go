package vlmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors classified at the fallback orchestrator boundary.
var (
	ErrVLMUnavailable = errors.New("vlm unavailable")
	ErrVLMParseError  = errors.New("vlm response could not be parsed")
)

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatMetadata struct {
	Source           string `json:"source"`
	SkipStateTracker bool   `json:"skip_state_tracker"`
}

type chatRequestBody struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Metadata    chatMetadata  `json:"metadata"`
}

type chatChoice struct {
	Message struct {
		Content any `json:"content"`
	} `json:"message"`
}

type chatResponseBody struct {
	Choices []chatChoice `json:"choices"`
}

// Client is an HTTP client for a single VLM server, responsible for both
// chat completions and the prompt save/swap/restore protocol.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	maxTokens  int
	temp       float64
	logger     *slog.Logger
}

// New constructs a Client. transport, if non-nil, overrides the underlying
// http.RoundTripper (used to wrap requests with tracing instrumentation).
func New(cfg Config, transport http.RoundTripper, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		maxTokens:  cfg.MaxTokens,
		temp:       cfg.Temperature,
		logger:     logger,
	}
}

// Query issues a chat-completions request with retry. On transport error or
// non-2xx response it retries up to maxRetries times with exponential
// backoff (2^attempt seconds), honoring ctx cancellation between attempts.
// After exhausting retries it returns ErrVLMUnavailable. The returned int is
// the number of attempts actually made, so a caller can derive its own
// retry/error counters without re-deriving the retry loop.
func (c *Client) Query(ctx context.Context, req ChatRequest) (string, int, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temp
	}
	body := chatRequestBody{
		Messages: []chatMessage{{
			Role:    "user",
			Content: req.Content,
		}},
		MaxTokens:   valueOrDefault(req.MaxTokens, c.maxTokens),
		Temperature: temperature,
		Metadata: chatMetadata{
			Source:           "fallback_query",
			SkipStateTracker: true,
		},
	}

	var lastErr error
	attempts := c.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return "", attempt, fmt.Errorf("%w: %v", ErrVLMUnavailable, err)
			}
		}

		text, err := c.doChat(ctx, body)
		if err == nil {
			return text, attempt + 1, nil
		}
		lastErr = err
		c.logger.Warn("vlmclient: chat completion attempt failed", "attempt", attempt+1, "error", err)
	}

	return "", attempts, fmt.Errorf("%w: %w", ErrVLMUnavailable, lastErr)
}

func (c *Client) doChat(ctx context.Context, body chatRequestBody) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVLMUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d", ErrVLMUnavailable, resp.StatusCode)
	}

	var parsed chatResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVLMParseError, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrVLMParseError)
	}

	text, err := extractContent(parsed.Choices[0].Message.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVLMParseError, err)
	}
	return text, nil
}

// extractContent accepts the three response-content shapes the VLM may
// return: a plain string, a list of parts each with a "text" field, or a
// map with a "text" field (or its stringified form as a last resort).
func extractContent(content any) (string, error) {
	switch v := content.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case []any:
		var b strings.Builder
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
		return strings.TrimSpace(normalizeWhitespace(b.String())), nil
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return strings.TrimSpace(text), nil
		}
		return strings.TrimSpace(fmt.Sprintf("%v", v)), nil
	default:
		return "", fmt.Errorf("unrecognized content shape %T", content)
	}
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Health issues a tiny (10-token, temperature 0.1) request to the VLM with a
// short fixed timeout and reports liveness.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := c.doChat(ctx, chatRequestBody{
		Messages:    []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens:   10,
		Temperature: 0.1,
		Metadata:    chatMetadata{Source: "health_check", SkipStateTracker: true},
	})
	latency := time.Since(start)

	if err != nil {
		return HealthStatus{Healthy: false, Status: err.Error(), LatencyMS: float64(latency.Milliseconds()), URL: c.baseURL}, nil
	}
	return HealthStatus{Healthy: true, Status: "ok", LatencyMS: float64(latency.Milliseconds()), URL: c.baseURL}, nil
}

func valueOrDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// sleepBackoff sleeps 2^attempt seconds, or returns early with ctx.Err() if
// the context is cancelled first.
func sleepBackoff(ctx context.Context, attempt int) error {
	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
