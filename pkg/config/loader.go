package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Initialize loads, resolves, and validates configuration in one call. This
// is the primary entry point used by cmd/tracker.
//
// Steps performed:
//  1. Load the JSON file from path (env vars of the form ${VAR} expanded first)
//  2. Resolve: overlay non-zero fields onto compiled-in defaults
//  3. Validate the resolved configuration
//  4. Return Config ready for use
func Initialize(path string) (*Config, error) {
	log := slog.With("config_path", path)
	log.Info("loading configuration")

	raw, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := Resolve(raw)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration loaded",
		"confidence_threshold", cfg.DecisionEngine.ConfidenceThreshold,
		"vlm_url", cfg.VLMClient.ModelServerURL,
		"max_concurrent_requests", cfg.Performance.MaxConcurrentRequests,
	)

	return cfg, nil
}

// Load reads and unmarshals the JSON configuration file at path. A missing
// file wraps ErrConfigNotFound; malformed JSON wraps ErrInvalidJSON.
func Load(path string) (*RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	// Expand ${VAR}-style environment variables before unmarshalling, the
	// same way the teacher expands {{.VAR}} template placeholders before
	// handing the bytes to its YAML parser.
	data = ExpandEnv(data)

	var raw RawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	return &raw, nil
}

// Resolve overlays the values present in raw onto DefaultConfig, one
// resolveXConfig helper per subsection.
func Resolve(raw *RawConfig) *Config {
	cfg := DefaultConfig()
	if raw == nil {
		return cfg
	}

	var vf *RawVLMFallbackConfig
	if raw.VLMFallback != nil {
		vf = raw.VLMFallback
	}

	resolveDecisionEngineConfig(&cfg.DecisionEngine, vf)
	resolveVLMClientConfig(&cfg.VLMClient, vf)
	resolvePromptsConfig(&cfg.Prompts, vf)
	resolveLoggingConfig(&cfg.Logging, vf)
	resolvePerformanceConfig(&cfg.Performance, vf)
	if vf != nil && vf.EnableImageFallback != nil {
		cfg.EnableImageFallback = *vf.EnableImageFallback
	}

	resolveServerConfig(&cfg.Server, raw.Server)

	return cfg
}

func resolveDecisionEngineConfig(dst *DecisionEngineConfig, vf *RawVLMFallbackConfig) {
	if vf == nil || vf.DecisionEngine == nil {
		return
	}
	r := vf.DecisionEngine
	if r.ConfidenceThreshold != nil {
		dst.ConfidenceThreshold = *r.ConfidenceThreshold
	}
	if r.EnableUnknownQueryFallback != nil {
		dst.EnableUnknownQueryFallback = *r.EnableUnknownQueryFallback
	}
	if r.EnableNoStateFallback != nil {
		dst.EnableNoStateFallback = *r.EnableNoStateFallback
	}
}

func resolveVLMClientConfig(dst *VLMClientConfig, vf *RawVLMFallbackConfig) {
	if vf == nil || vf.VLMClient == nil {
		return
	}
	r := vf.VLMClient
	if r.ModelServerURL != "" {
		dst.ModelServerURL = r.ModelServerURL
	}
	if r.Timeout != "" {
		if d, err := time.ParseDuration(r.Timeout); err == nil {
			dst.Timeout = d
		} else {
			slog.Warn("invalid vlm_client.timeout, using default",
				"value", r.Timeout, "default", dst.Timeout, "error", err)
		}
	}
	if r.MaxRetries != nil {
		dst.MaxRetries = *r.MaxRetries
	}
	if r.MaxTokens != nil {
		dst.MaxTokens = *r.MaxTokens
	}
	if r.Temperature != nil {
		dst.Temperature = *r.Temperature
	}
}

func resolvePromptsConfig(dst *PromptsConfig, vf *RawVLMFallbackConfig) {
	if vf == nil || vf.Prompts == nil {
		return
	}
	r := vf.Prompts
	if r.FallbackTemplate != "" {
		dst.FallbackTemplate = r.FallbackTemplate
	}
	if r.ImageFallbackTemplate != "" {
		dst.ImageFallbackTemplate = r.ImageFallbackTemplate
	}
}

func resolveLoggingConfig(dst *LoggingConfig, vf *RawVLMFallbackConfig) {
	if vf == nil || vf.Logging == nil {
		return
	}
	r := vf.Logging
	if r.EnableDecisionLogs != nil {
		dst.EnableDecisionLogs = *r.EnableDecisionLogs
	}
	if r.EnableVLMLogs != nil {
		dst.EnableVLMLogs = *r.EnableVLMLogs
	}
	if r.EnablePerformanceLogs != nil {
		dst.EnablePerformanceLogs = *r.EnablePerformanceLogs
	}
}

func resolvePerformanceConfig(dst *PerformanceConfig, vf *RawVLMFallbackConfig) {
	if vf == nil || vf.Performance == nil {
		return
	}
	r := vf.Performance
	if r.MaxConcurrentRequests != nil {
		dst.MaxConcurrentRequests = *r.MaxConcurrentRequests
	}
	if r.RequestQueueSize != nil {
		dst.RequestQueueSize = *r.RequestQueueSize
	}
}

func resolveServerConfig(dst *ServerConfig, raw *RawServerConfig) {
	if raw == nil {
		return
	}
	if raw.ListenAddr != "" {
		dst.ListenAddr = raw.ListenAddr
	}
	if raw.ReadTimeoutS != nil {
		dst.ReadTimeout = time.Duration(*raw.ReadTimeoutS) * time.Second
	}
	if raw.WriteTimeoutS != nil {
		dst.WriteTimeout = time.Duration(*raw.WriteTimeoutS) * time.Second
	}
	if raw.ShutdownGraceS != nil {
		dst.ShutdownGrace = time.Duration(*raw.ShutdownGraceS) * time.Second
	}
}
