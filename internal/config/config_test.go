package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, "X-API-Key", cfg.Auth.APIKeyHeader)
	assert.Equal(t, "zh-CN-XiaoxiaoMultilingualNeural", cfg.TTS.DefaultVoice)
	assert.Equal(t, "audio-24khz-48kbitrate-mono-mp3", cfg.TTS.DefaultFormat)
	assert.Equal(t, 5000, cfg.TTS.MaxTextLength)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("API_KEY", "secret")
	t.Setenv("TTS_MAX_TEXT_LENGTH", "100")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "secret", cfg.Auth.APIKey)
	assert.Equal(t, 100, cfg.TTS.MaxTextLength)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
