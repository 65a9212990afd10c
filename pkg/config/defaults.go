package config

import "time"

const (
	defaultConfidenceThreshold = 0.40
	defaultModelServerURL      = "http://localhost:8080"
	defaultTimeout             = 30 * time.Second
	defaultMaxRetries          = 2
	defaultMaxTokens           = 500
	defaultTemperature         = 0.7
	defaultMaxConcurrent       = 10
	defaultQueueSize           = 100

	defaultFallbackTemplate      = "Answer the user's question based on what you can infer: {query}"
	defaultImageFallbackTemplate = "Using the attached image ({image_format}, {image_size} bytes base64), answer: {query}"

	defaultListenAddr      = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownGrace   = 10 * time.Second
)

// DefaultConfig returns the compiled-in configuration used when a field is
// absent from the loaded file.
func DefaultConfig() *Config {
	return &Config{
		DecisionEngine: DecisionEngineConfig{
			ConfidenceThreshold:        defaultConfidenceThreshold,
			EnableUnknownQueryFallback: true,
			EnableNoStateFallback:      true,
		},
		VLMClient: VLMClientConfig{
			ModelServerURL: defaultModelServerURL,
			Timeout:        defaultTimeout,
			MaxRetries:     defaultMaxRetries,
			MaxTokens:      defaultMaxTokens,
			Temperature:    defaultTemperature,
		},
		Prompts: PromptsConfig{
			FallbackTemplate:      defaultFallbackTemplate,
			ImageFallbackTemplate: defaultImageFallbackTemplate,
		},
		Logging: LoggingConfig{
			EnableDecisionLogs:    true,
			EnableVLMLogs:         true,
			EnablePerformanceLogs: false,
		},
		Performance: PerformanceConfig{
			MaxConcurrentRequests: defaultMaxConcurrent,
			RequestQueueSize:      defaultQueueSize,
		},
		EnableImageFallback: false,
		Server: ServerConfig{
			ListenAddr:    defaultListenAddr,
			ReadTimeout:   defaultReadTimeout,
			WriteTimeout:  defaultWriteTimeout,
			ShutdownGrace: defaultShutdownGrace,
		},
	}
}
