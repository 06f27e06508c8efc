package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultVoiceListURL = "https://eastus.api.speech.microsoft.com/cognitiveservices/voices/list"

	voiceCacheTTL = 4 * time.Hour
	voiceCacheKey = "ttsproxy:voices"
)

// Voice describes one synthesis voice from the upstream catalog.
type Voice struct {
	Name            string   `json:"Name"`
	DisplayName     string   `json:"DisplayName"`
	LocalName       string   `json:"LocalName"`
	ShortName       string   `json:"ShortName"`
	Gender          string   `json:"Gender"`
	Locale          string   `json:"Locale"`
	LocaleName      string   `json:"LocaleName"`
	StyleList       []string `json:"StyleList,omitempty"`
	SampleRateHertz string   `json:"SampleRateHertz"`
	VoiceType       string   `json:"VoiceType"`
	Status          string   `json:"Status"`
	WordsPerMinute  string   `json:"WordsPerMinute,omitempty"`
}

// CatalogConfig holds overrides for the voice catalog.
type CatalogConfig struct {
	URL     string        // default: the eastus voices/list endpoint
	Timeout time.Duration // default: 15s
}

// Catalog serves the upstream voice list through a time-boxed cache: the
// whole list is replaced at once and reused until it is four hours old. An
// optional Redis client shares one fetch window across replicas; without it
// the cache is purely in-process.
type Catalog struct {
	url        string
	httpClient *http.Client
	redis      *redis.Client
	now        func() time.Time

	mu        sync.Mutex
	entries   []Voice
	fetchedAt time.Time
}

// NewCatalog creates a Catalog. rdb may be nil.
func NewCatalog(rdb *redis.Client, cfg CatalogConfig) *Catalog {
	if cfg.URL == "" {
		cfg.URL = defaultVoiceListURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Catalog{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		redis:      rdb,
		now:        time.Now,
	}
}

// Voices returns the catalog, optionally filtered to voices whose locale
// contains the given substring (case-insensitive).
func (c *Catalog) Voices(ctx context.Context, locale string) ([]Voice, error) {
	voices, err := c.all(ctx)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		return voices, nil
	}

	needle := strings.ToLower(locale)
	filtered := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Locale), needle) {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}

func (c *Catalog) all(ctx context.Context) ([]Voice, error) {
	c.mu.Lock()
	if c.entries != nil && c.now().Sub(c.fetchedAt) < voiceCacheTTL {
		entries := c.entries
		c.mu.Unlock()
		return entries, nil
	}
	c.mu.Unlock()

	if c.redis != nil {
		if data, err := c.redis.Get(ctx, voiceCacheKey).Bytes(); err == nil {
			var cached []Voice
			if err := json.Unmarshal(data, &cached); err == nil && len(cached) > 0 {
				c.store(cached)
				return cached, nil
			}
		}
	}

	voices, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.store(voices)

	if c.redis != nil {
		if data, err := json.Marshal(voices); err == nil {
			if err := c.redis.Set(ctx, voiceCacheKey, data, voiceCacheTTL).Err(); err != nil {
				slog.Warn("voice cache write failed", "error", err)
			}
		}
	}
	return voices, nil
}

func (c *Catalog) store(voices []Voice) {
	c.mu.Lock()
	c.entries = voices
	c.fetchedAt = c.now()
	c.mu.Unlock()
}

func (c *Catalog) fetch(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build voice list request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36 Edg/107.0.1418.26")
	req.Header.Set("X-Ms-Useragent", "SpeechStudio/2021.05.001")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://azure.microsoft.com")
	req.Header.Set("Referer", "https://azure.microsoft.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch voice list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("decode voice list: %w", err)
	}

	slog.Info("refreshed voice catalog", "voices", len(voices))
	return voices, nil
}
