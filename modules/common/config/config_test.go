package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("CAPTURE_SEEK_MS", "")
	t.Setenv("CAPTURE_FORMAT", "")
	t.Setenv("GENERATION_BACKEND", "")

	cfg := FromEnv()

	assert.Equal(t, 100*time.Millisecond, cfg.CaptureSeek)
	assert.Equal(t, 15*time.Second, cfg.CaptureTimeout)
	assert.Equal(t, "png", cfg.CaptureFormat)
	assert.Equal(t, BackendGenai, cfg.GenerationBackend)
	assert.Equal(t, int64(64<<20), cfg.MaxUploadBytes())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CAPTURE_SEEK_MS", "250")
	t.Setenv("CAPTURE_FORMAT", "WEBP")
	t.Setenv("GENERATION_BACKEND", "queue")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_USE_TLS", "true")
	t.Setenv("RUN_WORKER", "false")

	cfg := FromEnv()

	assert.Equal(t, 250*time.Millisecond, cfg.CaptureSeek)
	assert.Equal(t, "webp", cfg.CaptureFormat)
	assert.Equal(t, "cache:6380", cfg.GetRedisAddr())
	assert.True(t, cfg.RedisUseTLS)
	require.NoError(t, cfg.validate())
}

func TestLoadConfig_ReturnsValidatedConfig(t *testing.T) {
	t.Setenv("GENERATION_BACKEND", "genai")
	t.Setenv("GENAI_BACKEND", "gemini")
	t.Setenv("GEMINI_API_KEY", "key-1")
	t.Setenv("GEMINI_API_KEYS", "")
	t.Setenv("CAPTURE_FORMAT", "png")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"key-1"}, cfg.APIKeys())

	// 매번 새 값 (전역 상태 없음)
	t.Setenv("GEMINI_API_KEY", "key-2")
	again, err := LoadConfig()
	require.NoError(t, err)
	assert.NotSame(t, cfg, again)
	assert.Equal(t, []string{"key-2"}, again.APIKeys())
}

func TestValidate(t *testing.T) {
	t.Run("genai backend needs api key", func(t *testing.T) {
		cfg := FromEnv()
		cfg.GenerationBackend = BackendGenai
		cfg.GeminiAPIKey = ""
		cfg.GeminiAPIKeys = nil
		assert.Error(t, cfg.validate())

		cfg.GeminiAPIKey = "key"
		assert.NoError(t, cfg.validate())
	})

	t.Run("queue backend with in-process worker needs api key", func(t *testing.T) {
		cfg := FromEnv()
		cfg.GenerationBackend = BackendQueue
		cfg.RunWorker = true
		cfg.GeminiAPIKey = ""
		cfg.GeminiAPIKeys = nil
		assert.Error(t, cfg.validate())

		cfg.RunWorker = false
		assert.NoError(t, cfg.validate())
	})

	t.Run("vertex backend needs project", func(t *testing.T) {
		cfg := FromEnv()
		cfg.GenerationBackend = BackendGenai
		cfg.GenaiBackend = GenaiVertexAI
		cfg.GeminiAPIKey = ""
		cfg.GeminiAPIKeys = nil
		cfg.VertexProject = ""
		assert.Error(t, cfg.validate())

		cfg.VertexProject = "my-project"
		assert.NoError(t, cfg.validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := FromEnv()
		cfg.GenerationBackend = "kafka"
		assert.Error(t, cfg.validate())
	})

	t.Run("unknown capture format", func(t *testing.T) {
		cfg := FromEnv()
		cfg.GenerationBackend = BackendQueue
		cfg.RunWorker = false
		cfg.CaptureFormat = "jpeg"
		assert.Error(t, cfg.validate())
	})
}

func TestAPIKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("GEMINI_API_KEYS", " second, primary ,, third ")

	cfg := FromEnv()
	assert.Equal(t, []string{"primary", "second", "third"}, cfg.APIKeys())

	cfg.GeminiAPIKey = ""
	cfg.GeminiAPIKeys = nil
	assert.Empty(t, cfg.APIKeys())
}
