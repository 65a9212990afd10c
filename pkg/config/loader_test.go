package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_MissingFileWrapsErrConfigNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoad_InvalidJSONWrapsErrInvalidJSON(t *testing.T) {
	path := writeConfigFile(t, `{not valid json`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidJSON))
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_VLM_HOST", "http://vlm.internal:9000")
	path := writeConfigFile(t, `{"vlm_fallback": {"vlm_client": {"model_server_url": "${TEST_VLM_HOST}"}}}`)

	raw, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, raw.VLMFallback)
	require.NotNil(t, raw.VLMFallback.VLMClient)
	assert.Equal(t, "http://vlm.internal:9000", raw.VLMFallback.VLMClient.ModelServerURL)
}

func TestResolve_NilRawReturnsDefaults(t *testing.T) {
	cfg := Resolve(nil)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_OverlaysOnlyProvidedFields(t *testing.T) {
	threshold := 0.55
	raw := &RawConfig{
		VLMFallback: &RawVLMFallbackConfig{
			DecisionEngine: &RawDecisionEngineConfig{ConfidenceThreshold: &threshold},
		},
	}

	cfg := Resolve(raw)

	assert.Equal(t, 0.55, cfg.DecisionEngine.ConfidenceThreshold)
	// Everything else still comes from DefaultConfig.
	assert.Equal(t, DefaultConfig().VLMClient, cfg.VLMClient)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestResolve_VLMClientTimeoutParsesDuration(t *testing.T) {
	raw := &RawConfig{
		VLMFallback: &RawVLMFallbackConfig{
			VLMClient: &RawVLMClientConfig{Timeout: "45s"},
		},
	}

	cfg := Resolve(raw)
	assert.Equal(t, 45*time.Second, cfg.VLMClient.Timeout)
}

func TestResolve_InvalidTimeoutFallsBackToDefault(t *testing.T) {
	raw := &RawConfig{
		VLMFallback: &RawVLMFallbackConfig{
			VLMClient: &RawVLMClientConfig{Timeout: "not-a-duration"},
		},
	}

	cfg := Resolve(raw)
	assert.Equal(t, DefaultConfig().VLMClient.Timeout, cfg.VLMClient.Timeout)
}

func TestResolve_ServerSectionSecondsConvertToDuration(t *testing.T) {
	read, write, grace := 20, 40, 5
	raw := &RawConfig{
		Server: &RawServerConfig{
			ListenAddr:     ":9090",
			ReadTimeoutS:   &read,
			WriteTimeoutS:  &write,
			ShutdownGraceS: &grace,
		},
	}

	cfg := Resolve(raw)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 40*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownGrace)
}

func TestInitialize_LoadsResolvesAndValidates(t *testing.T) {
	path := writeConfigFile(t, `{
		"vlm_fallback": {
			"decision_engine": {"confidence_threshold": 0.5},
			"vlm_client": {"model_server_url": "http://localhost:9100"}
		},
		"server": {"listen_addr": ":8090"}
	}`)

	cfg, err := Initialize(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.DecisionEngine.ConfidenceThreshold)
	assert.Equal(t, "http://localhost:9100", cfg.VLMClient.ModelServerURL)
	assert.Equal(t, ":8090", cfg.Server.ListenAddr)
}

func TestInitialize_InvalidConfigurationFailsValidation(t *testing.T) {
	path := writeConfigFile(t, `{"vlm_fallback": {"decision_engine": {"confidence_threshold": 5.0}}}`)
	_, err := Initialize(path)
	require.Error(t, err)
}

func TestInitialize_UnknownTopLevelKeysAreIgnored(t *testing.T) {
	path := writeConfigFile(t, `{"vlm_fallback": {}, "some_future_key": {"anything": true}}`)
	_, err := Initialize(path)
	require.NoError(t, err)
}
