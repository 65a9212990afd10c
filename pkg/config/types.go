package config

import "time"

// RawConfig is the untyped shape read directly off disk, before defaults are
// overlaid. Numeric and boolean fields are pointers so Resolve can tell
// "absent" from "explicitly zero"; an empty string field counts as absent.
type RawConfig struct {
	VLMFallback *RawVLMFallbackConfig `json:"vlm_fallback"`
	Server      *RawServerConfig      `json:"server"`
}

// RawVLMFallbackConfig mirrors the vlm_fallback top-level key exactly as
// documented in the external interface contract.
type RawVLMFallbackConfig struct {
	DecisionEngine       *RawDecisionEngineConfig `json:"decision_engine"`
	VLMClient            *RawVLMClientConfig      `json:"vlm_client"`
	Prompts              *RawPromptsConfig        `json:"prompts"`
	Logging              *RawLoggingConfig        `json:"logging"`
	Performance          *RawPerformanceConfig    `json:"performance"`
	EnableImageFallback  *bool                    `json:"enable_image_fallback"`
}

type RawDecisionEngineConfig struct {
	ConfidenceThreshold        *float64 `json:"confidence_threshold"`
	EnableUnknownQueryFallback *bool    `json:"enable_unknown_query_fallback"`
	EnableNoStateFallback      *bool    `json:"enable_no_state_fallback"`
}

type RawVLMClientConfig struct {
	ModelServerURL string   `json:"model_server_url"`
	Timeout        string   `json:"timeout"`
	MaxRetries     *int     `json:"max_retries"`
	MaxTokens      *int     `json:"max_tokens"`
	Temperature    *float64 `json:"temperature"`
}

type RawPromptsConfig struct {
	FallbackTemplate      string `json:"fallback_template"`
	ImageFallbackTemplate string `json:"image_fallback_template"`
}

type RawLoggingConfig struct {
	EnableDecisionLogs    *bool `json:"enable_decision_logs"`
	EnableVLMLogs         *bool `json:"enable_vlm_logs"`
	EnablePerformanceLogs *bool `json:"enable_performance_logs"`
}

type RawPerformanceConfig struct {
	MaxConcurrentRequests *int `json:"max_concurrent_requests"`
	RequestQueueSize      *int `json:"request_queue_size"`
}

type RawServerConfig struct {
	ListenAddr     string `json:"listen_addr"`
	ReadTimeoutS   *int   `json:"read_timeout_s"`
	WriteTimeoutS  *int   `json:"write_timeout_s"`
	ShutdownGraceS *int   `json:"shutdown_grace_s"`
}

// Config is the fully resolved, defaulted configuration used to construct
// every component.
type Config struct {
	DecisionEngine DecisionEngineConfig
	VLMClient      VLMClientConfig
	Prompts        PromptsConfig
	Logging        LoggingConfig
	Performance    PerformanceConfig
	EnableImageFallback bool

	Server ServerConfig
}

type DecisionEngineConfig struct {
	ConfidenceThreshold        float64
	EnableUnknownQueryFallback bool
	EnableNoStateFallback      bool
}

type VLMClientConfig struct {
	ModelServerURL string
	Timeout        time.Duration
	MaxRetries     int
	MaxTokens      int
	Temperature    float64
}

type PromptsConfig struct {
	FallbackTemplate      string
	ImageFallbackTemplate string
}

type LoggingConfig struct {
	EnableDecisionLogs    bool
	EnableVLMLogs         bool
	EnablePerformanceLogs bool
}

type PerformanceConfig struct {
	MaxConcurrentRequests int
	RequestQueueSize      int
}

type ServerConfig struct {
	ListenAddr     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ShutdownGrace  time.Duration
}
