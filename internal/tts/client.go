package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSynthesisURLTemplate = "https://%s.tts.speech.microsoft.com/cognitiveservices/v1"
	synthesisUserAgent          = "okhttp/4.5.0"

	// DefaultOutputFormat is the audio profile used when a request does not
	// name one.
	DefaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
)

// SynthesisRequest holds the parameters for one synthesis call.
type SynthesisRequest struct {
	Text         string
	Voice        string
	Rate         int // -100..100, percent
	Pitch        int // -100..100, percent
	Style        string
	OutputFormat string
	Download     bool
}

// SynthesisResult holds the synthesized audio and the response headers the
// API layer should mirror to its caller.
type SynthesisResult struct {
	Audio       []byte
	ContentType string
	Disposition string // set when the caller asked for download semantics
}

// UpstreamError is a non-2xx reply from an upstream endpoint. The API layer
// mirrors status and body to the client verbatim; nothing retries.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// ClientConfig holds overrides for the synthesis client.
type ClientConfig struct {
	// URLTemplate builds the synthesis endpoint from the credential's
	// region via fmt.Sprintf. Default: the Microsoft regional endpoint.
	URLTemplate string
	Timeout     time.Duration // default: 120s
}

// Client issues authenticated synthesis requests. Within one call the order
// is fixed: credential first, then SSML, then the synthesis POST. The token
// has to exist before it can be attached.
type Client struct {
	creds       *CredentialManager
	urlTemplate string
	httpClient  *http.Client
}

// NewClient creates a Client with defaults applied.
func NewClient(creds *CredentialManager, cfg ClientConfig) *Client {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = defaultSynthesisURLTemplate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		creds:       creds,
		urlTemplate: cfg.URLTemplate,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Synthesize converts text to audio through the regional synthesis endpoint.
// Non-2xx upstream replies come back as *UpstreamError.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	cred, err := c.creds.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure credential: %w", err)
	}

	format := req.OutputFormat
	if format == "" {
		format = DefaultOutputFormat
	}

	ssml := BuildSSML(req.Text, req.Voice, req.Rate, req.Pitch, req.Style)

	endpoint := fmt.Sprintf(c.urlTemplate, cred.Region)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	httpReq.Header.Set("Authorization", cred.Token)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("User-Agent", synthesisUserAgent)
	httpReq.Header.Set("X-Microsoft-OutputFormat", format)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	result := &SynthesisResult{Audio: audio, ContentType: contentType}
	if req.Download {
		// The extension stays .mp3 for every output format. Reader clients
		// of the original service key on the constant name, so changing it
		// per codec would be a behavior break.
		result.Disposition = fmt.Sprintf("attachment; filename=%q", NewTraceID()+".mp3")
	}
	return result, nil
}
