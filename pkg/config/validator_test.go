package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidateDecisionEngine_RejectsOutOfRangeThreshold(t *testing.T) {
	d := DecisionEngineConfig{ConfidenceThreshold: 1.5}
	assert.Error(t, validateDecisionEngine(d))
}

func TestValidateVLMClient_RejectsMissingURL(t *testing.T) {
	v := DefaultConfig().VLMClient
	v.ModelServerURL = ""
	assert.Error(t, validateVLMClient(v))
}

func TestValidateVLMClient_RejectsMalformedURL(t *testing.T) {
	v := DefaultConfig().VLMClient
	v.ModelServerURL = "not a url"
	assert.Error(t, validateVLMClient(v))
}

func TestValidateVLMClient_RejectsNonPositiveTimeout(t *testing.T) {
	v := DefaultConfig().VLMClient
	v.Timeout = 0
	assert.Error(t, validateVLMClient(v))
}

func TestValidateVLMClient_RejectsOutOfRangeTemperature(t *testing.T) {
	v := DefaultConfig().VLMClient
	v.Temperature = 3.0
	assert.Error(t, validateVLMClient(v))
}

func TestValidatePrompts_RejectsMissingQueryPlaceholder(t *testing.T) {
	p := PromptsConfig{FallbackTemplate: "answer this please"}
	assert.Error(t, validatePrompts(p, false))
}

func TestValidatePrompts_ImageTemplateRequiresAllPlaceholdersWhenEnabled(t *testing.T) {
	p := PromptsConfig{
		FallbackTemplate:      "Answer: {query}",
		ImageFallbackTemplate: "Answer: {query} using the image",
	}
	assert.Error(t, validatePrompts(p, true))
}

func TestValidatePrompts_ImageTemplateIgnoredWhenDisabled(t *testing.T) {
	p := PromptsConfig{
		FallbackTemplate:      "Answer: {query}",
		ImageFallbackTemplate: "missing placeholders entirely",
	}
	assert.NoError(t, validatePrompts(p, false))
}

func TestValidatePerformance_RejectsZeroConcurrency(t *testing.T) {
	p := PerformanceConfig{MaxConcurrentRequests: 0, RequestQueueSize: 10}
	assert.Error(t, validatePerformance(p))
}

func TestValidatePerformance_RejectsNegativeQueueSize(t *testing.T) {
	p := PerformanceConfig{MaxConcurrentRequests: 5, RequestQueueSize: -1}
	assert.Error(t, validatePerformance(p))
}

func TestValidateServer_RejectsEmptyListenAddr(t *testing.T) {
	s := DefaultConfig().Server
	s.ListenAddr = ""
	assert.Error(t, validateServer(s))
}

func TestValidate_AggregatesMultipleFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecisionEngine.ConfidenceThreshold = -1
	cfg.VLMClient.ModelServerURL = ""
	cfg.Performance.MaxConcurrentRequests = 0

	err := Validate(cfg)
	assert.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "decision_engine")
	assert.Contains(t, msg, "vlm_client")
	assert.Contains(t, msg, "performance")
}
