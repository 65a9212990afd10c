package vlmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrPromptRestoreFailed is returned by RestorePrompt when the VLM rejects
// the restore request. The caller must still surface a graceful
// user-visible response; this error is for logging only.
var ErrPromptRestoreFailed = errors.New("vlm prompt restore failed")

type systemPromptBody struct {
	SystemPrompt string `json:"system_prompt"`
}

// SavePrompt captures the VLM's currently active system prompt, to be
// restored after a fallback query completes (invariant: the VLM's prompt
// after a fallback equals the prompt observed before it started).
func (c *Client) SavePrompt(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/system_prompt", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVLMUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d", ErrVLMUnavailable, resp.StatusCode)
	}

	var parsed systemPromptBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVLMParseError, err)
	}
	return parsed.SystemPrompt, nil
}

// SwapPrompt installs a new system prompt on the VLM.
func (c *Client) SwapPrompt(ctx context.Context, prompt string) error {
	return c.putSystemPrompt(ctx, prompt)
}

// RestorePrompt reinstalls a previously saved system prompt. It must be
// called on every exit path of a fallback query, including cancellation, so
// the caller is expected to invoke it from a defer registered immediately
// after a successful SavePrompt+SwapPrompt pair.
func (c *Client) RestorePrompt(ctx context.Context, saved string) error {
	if err := c.putSystemPrompt(ctx, saved); err != nil {
		return fmt.Errorf("%w: %v", ErrPromptRestoreFailed, err)
	}
	return nil
}

func (c *Client) putSystemPrompt(ctx context.Context, prompt string) error {
	payload, err := json.Marshal(systemPromptBody{SystemPrompt: prompt})
	if err != nil {
		return fmt.Errorf("marshal system prompt: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/system_prompt", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVLMUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrVLMUnavailable, resp.StatusCode)
	}
	return nil
}
