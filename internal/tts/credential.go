package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultIssueURL is the Translator endpoint that exchanges a signed
	// request for a short-lived synthesis token and region.
	defaultIssueURL = "https://dev.microsofttranslator.com/apps/endpoint?api-version=1.0"

	// renewalMargin is how long before actual expiry a credential is
	// already treated as expired.
	renewalMargin = 60 * time.Second
)

// Credential is a short-lived bearer token plus the region code naming the
// synthesis host it is valid for. It is replaced wholesale on renewal and
// never partially mutated.
type Credential struct {
	Token     string
	Region    string
	ExpiresAt int64 // epoch seconds, read from the token's exp claim
}

func (c Credential) validAt(now time.Time) bool {
	return c.Token != "" && now.Unix() < c.ExpiresAt-int64(renewalMargin/time.Second)
}

// CredentialManagerConfig holds overrides for the credential manager.
type CredentialManagerConfig struct {
	IssueURL string        // default: the Translator issuing endpoint
	Timeout  time.Duration // default: 15s
}

// CredentialManager owns the process-wide synthesis credential and renews it
// lazily when absent or within the renewal margin of expiry. Concurrent
// callers that observe an expired credential share a single issuing request.
type CredentialManager struct {
	signer     *Signer
	issueURL   string
	httpClient *http.Client
	now        func() time.Time
	newUserID  func() string
	newTraceID func() string

	mu    sync.Mutex
	cred  Credential
	group singleflight.Group
}

// NewCredentialManager creates a CredentialManager with defaults applied.
func NewCredentialManager(signer *Signer, cfg CredentialManagerConfig) *CredentialManager {
	if cfg.IssueURL == "" {
		cfg.IssueURL = defaultIssueURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &CredentialManager{
		signer:     signer,
		issueURL:   cfg.IssueURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		newUserID:  NewUserID,
		newTraceID: NewTraceID,
	}
}

// Ensure returns a credential that is valid for at least the renewal margin,
// issuing a new one when needed. Issuing failures propagate unretried; the
// cached credential is left untouched so a later call can try again.
func (m *CredentialManager) Ensure(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	cred := m.cred
	m.mu.Unlock()

	if cred.validAt(m.now()) {
		return cred, nil
	}

	v, err, _ := m.group.Do("issue", func() (interface{}, error) {
		// Re-check under the flight: a caller that lost the race arrives
		// here after the winner already stored a fresh credential.
		m.mu.Lock()
		cred := m.cred
		m.mu.Unlock()
		if cred.validAt(m.now()) {
			return cred, nil
		}

		fresh, err := m.issue(ctx)
		if err != nil {
			return Credential{}, err
		}

		m.mu.Lock()
		m.cred = fresh
		m.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

type issueResponse struct {
	Token  string `json:"t"`
	Region string `json:"r"`
}

func (m *CredentialManager) issue(ctx context.Context) (Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.issueURL, nil)
	if err != nil {
		return Credential{}, fmt.Errorf("build issue request: %w", err)
	}

	// Header set mimicking the Translator mobile client. Accept-Encoding is
	// left to the transport, which negotiates gzip and decompresses
	// transparently; setting it by hand would disable that.
	req.Header.Set("Accept-Language", "zh-Hans")
	req.Header.Set("X-ClientVersion", "4.0.530a 5fe1dc6c")
	req.Header.Set("X-UserId", m.newUserID())
	req.Header.Set("X-HomeGeographicRegion", "zh-Hans-CN")
	req.Header.Set("X-ClientTraceId", m.newTraceID())
	req.Header.Set("X-MT-Signature", m.signer.Sign(m.issueURL))
	req.Header.Set("User-Agent", "okhttp/4.5.0")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Length", "0")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("issue credential: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Credential{}, fmt.Errorf("issue credential: status %d: %s", resp.StatusCode, body)
	}

	var ir issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return Credential{}, fmt.Errorf("decode credential response: %w", err)
	}
	if ir.Token == "" || ir.Region == "" {
		return Credential{}, errors.New("credential response missing token or region")
	}

	exp, err := tokenExpiry(ir.Token)
	if err != nil {
		return Credential{}, err
	}

	slog.Info("issued synthesis credential",
		"region", ir.Region,
		"expires_in", time.Until(time.Unix(exp, 0)).Round(time.Second).String(),
	)

	return Credential{Token: ir.Token, Region: ir.Region, ExpiresAt: exp}, nil
}

// tokenExpiry reads the exp claim from the token's claims segment without
// verifying the signature. The token was just obtained first-party over TLS;
// this decode-only shortcut must not be reused on tokens from any other
// source.
func tokenExpiry(token string) (int64, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return 0, fmt.Errorf("parse bearer token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return 0, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return 0, errors.New("bearer token has no exp claim")
	}
	return exp.Unix(), nil
}
