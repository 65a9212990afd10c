// Package vlmclient talks HTTP to an external vision-language model server
// exposing an OpenAI-style chat-completions endpoint, and implements the
// save → swap → query → restore system-prompt protocol the fallback
// orchestrator needs.
package vlmclient

import "time"

// ContentPart is one element of a multi-part chat message, used when an
// image is attached alongside text.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries a data URL, per the OpenAI chat-completions image
// attachment convention.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatRequest is the payload sent to the VLM's chat-completions endpoint.
// Content is either a plain string (text-only) or a []ContentPart (with
// image), so it is typed as `any` and built by the caller.
type ChatRequest struct {
	Content     any
	MaxTokens   int
	Temperature float64
}

// HealthStatus is the result of a liveness probe against the VLM.
type HealthStatus struct {
	Healthy   bool
	Status    string
	LatencyMS float64
	URL       string
}

// Config holds the tunables the vlmclient package needs, resolved from the
// service's FallbackConfig (pkg/config).
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}
