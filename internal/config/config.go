package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Auth   AuthConfig
	TTS    TTSConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	// APIKey gates the synthesis endpoints. Empty disables the gate.
	APIKey       string
	APIKeyHeader string
}

type TTSConfig struct {
	DefaultVoice  string
	DefaultFormat string
	// MaxTextLength bounds inbound text in runes; 0 disables the bound.
	MaxTextLength int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxText, err := getEnvInt("TTS_MAX_TEXT_LENGTH", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_MAX_TEXT_LENGTH: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			APIKey:       getEnv("API_KEY", ""),
			APIKeyHeader: getEnv("API_KEY_HEADER", "X-API-Key"),
		},
		TTS: TTSConfig{
			DefaultVoice:  getEnv("TTS_DEFAULT_VOICE", "zh-CN-XiaoxiaoMultilingualNeural"),
			DefaultFormat: getEnv("TTS_DEFAULT_FORMAT", "audio-24khz-48kbitrate-mono-mp3"),
			MaxTextLength: maxText,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
