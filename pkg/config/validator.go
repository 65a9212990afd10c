package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate runs the ordered sub-validators and aggregates every failure
// with errors.Join, rather than failing fast, so an operator sees every
// problem in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateDecisionEngine(cfg.DecisionEngine); err != nil {
		errs = append(errs, fmt.Errorf("decision_engine validation failed: %w", err))
	}
	if err := validateVLMClient(cfg.VLMClient); err != nil {
		errs = append(errs, fmt.Errorf("vlm_client validation failed: %w", err))
	}
	if err := validatePrompts(cfg.Prompts, cfg.EnableImageFallback); err != nil {
		errs = append(errs, fmt.Errorf("prompts validation failed: %w", err))
	}
	if err := validatePerformance(cfg.Performance); err != nil {
		errs = append(errs, fmt.Errorf("performance validation failed: %w", err))
	}
	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, fmt.Errorf("server validation failed: %w", err))
	}

	return errors.Join(errs...)
}

func validateDecisionEngine(d DecisionEngineConfig) error {
	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		return NewValidationError("decision_engine", "confidence_threshold",
			fmt.Errorf("%w: must be between 0 and 1, got %v", ErrInvalidValue, d.ConfidenceThreshold))
	}
	return nil
}

func validateVLMClient(v VLMClientConfig) error {
	if v.ModelServerURL == "" {
		return NewValidationError("vlm_client", "model_server_url", ErrMissingRequiredField)
	}
	if _, err := url.ParseRequestURI(v.ModelServerURL); err != nil {
		return NewValidationError("vlm_client", "model_server_url",
			fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	if v.Timeout <= 0 {
		return NewValidationError("vlm_client", "timeout",
			fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, v.Timeout))
	}
	if v.MaxRetries < 0 {
		return NewValidationError("vlm_client", "max_retries",
			fmt.Errorf("%w: must be non-negative, got %d", ErrInvalidValue, v.MaxRetries))
	}
	if v.MaxTokens <= 0 {
		return NewValidationError("vlm_client", "max_tokens",
			fmt.Errorf("%w: must be positive, got %d", ErrInvalidValue, v.MaxTokens))
	}
	if v.Temperature < 0 || v.Temperature > 2 {
		return NewValidationError("vlm_client", "temperature",
			fmt.Errorf("%w: must be between 0 and 2, got %v", ErrInvalidValue, v.Temperature))
	}
	return nil
}

// validatePrompts enforces the placeholder requirements: fallback_template
// must contain {query}; image_fallback_template must additionally contain
// {image_format} and {image_size} when image fallback is enabled.
func validatePrompts(p PromptsConfig, imageFallbackEnabled bool) error {
	if !strings.Contains(p.FallbackTemplate, "{query}") {
		return NewValidationError("prompts", "fallback_template",
			fmt.Errorf("%w: must contain the {query} placeholder", ErrInvalidValue))
	}
	if imageFallbackEnabled {
		for _, placeholder := range []string{"{query}", "{image_format}", "{image_size}"} {
			if !strings.Contains(p.ImageFallbackTemplate, placeholder) {
				return NewValidationError("prompts", "image_fallback_template",
					fmt.Errorf("%w: must contain the %s placeholder", ErrInvalidValue, placeholder))
			}
		}
	}
	return nil
}

func validatePerformance(p PerformanceConfig) error {
	if p.MaxConcurrentRequests < 1 {
		return NewValidationError("performance", "max_concurrent_requests",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, p.MaxConcurrentRequests))
	}
	if p.RequestQueueSize < 0 {
		return NewValidationError("performance", "request_queue_size",
			fmt.Errorf("%w: must be non-negative, got %d", ErrInvalidValue, p.RequestQueueSize))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.ListenAddr == "" {
		return NewValidationError("server", "listen_addr", ErrMissingRequiredField)
	}
	if s.ReadTimeout <= 0 {
		return NewValidationError("server", "read_timeout_s",
			fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, s.ReadTimeout))
	}
	if s.WriteTimeout <= 0 {
		return NewValidationError("server", "write_timeout_s",
			fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, s.WriteTimeout))
	}
	if s.ShutdownGrace < 0 {
		return NewValidationError("server", "shutdown_grace_s",
			fmt.Errorf("%w: must be non-negative, got %v", ErrInvalidValue, s.ShutdownGrace))
	}
	return nil
}
