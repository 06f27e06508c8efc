package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBearerToken builds a compact token whose claims segment carries exp.
func fakeBearerToken(t *testing.T, exp int64) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	claims, err := json.Marshal(map[string]int64{"exp": exp})
	require.NoError(t, err)
	payload := base64.RawURLEncoding.EncodeToString(claims)
	return header + "." + payload + "." + base64.RawURLEncoding.EncodeToString([]byte("sig"))
}

func issueServer(t *testing.T, calls *atomic.Int64, token, region string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"t": token, "r": region})
	}))
}

func newTestManager(t *testing.T, issueURL string) *CredentialManager {
	t.Helper()
	signer, err := NewSigner()
	require.NoError(t, err)
	return NewCredentialManager(signer, CredentialManagerConfig{IssueURL: issueURL})
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Unix()
	got, err := tokenExpiry(fakeBearerToken(t, exp))
	require.NoError(t, err)
	assert.Equal(t, exp, got)
}

func TestTokenExpiryMalformed(t *testing.T) {
	_, err := tokenExpiry("not-a-token")
	assert.Error(t, err)

	// Well-formed token without an exp claim.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`))
	_, err = tokenExpiry(header + "." + payload + ".c2ln")
	assert.Error(t, err)
}

func TestEnsureIssuesWhenAbsent(t *testing.T) {
	var calls atomic.Int64
	exp := time.Now().Add(10 * time.Minute).Unix()
	srv := issueServer(t, &calls, fakeBearerToken(t, exp), "eastasia")
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	cred, err := m.Ensure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "eastasia", cred.Region)
	assert.Equal(t, exp, cred.ExpiresAt)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEnsureRenewalBoundary(t *testing.T) {
	var calls atomic.Int64
	now := time.Now()
	srv := issueServer(t, &calls, fakeBearerToken(t, now.Add(time.Hour).Unix()), "westus")
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	m.now = func() time.Time { return now }

	// 61s of validity left: no renewal.
	m.cred = Credential{Token: "cached", Region: "eastus", ExpiresAt: now.Unix() + 61}
	cred, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", cred.Token)
	assert.Equal(t, int64(0), calls.Load())

	// 59s left: must renew.
	m.cred = Credential{Token: "cached", Region: "eastus", ExpiresAt: now.Unix() + 59}
	cred, err = m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "westus", cred.Region)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEnsureSingleFlight(t *testing.T) {
	var calls atomic.Int64
	token := fakeBearerToken(t, time.Now().Add(time.Hour).Unix())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"t": token, "r": "eastus"})
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := m.Ensure(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, token, cred.Token)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}

func TestEnsureErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	_, err := m.Ensure(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	// Cached state stays empty so the next call tries again.
	assert.Equal(t, Credential{}, m.cred)
}

func TestEnsureRejectsMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"t":""}`)
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	_, err := m.Ensure(context.Background())
	assert.Error(t, err)
}

func TestIssueRequestHeaders(t *testing.T) {
	token := fakeBearerToken(t, time.Now().Add(time.Hour).Unix())
	var got http.Header
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		method = r.Method
		json.NewEncoder(w).Encode(map[string]string{"t": token, "r": "eastus"})
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	_, err := m.Ensure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "zh-Hans", got.Get("Accept-Language"))
	assert.Equal(t, "4.0.530a 5fe1dc6c", got.Get("X-ClientVersion"))
	assert.Equal(t, "zh-Hans-CN", got.Get("X-HomeGeographicRegion"))
	assert.Equal(t, "okhttp/4.5.0", got.Get("User-Agent"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), got.Get("X-UserId"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), got.Get("X-ClientTraceId"))
	assert.Regexp(t, regexp.MustCompile(`^MSTranslatorAndroidApp::[A-Za-z0-9+/=]+::.+gmt::[0-9a-f]{32}$`), got.Get("X-MT-Signature"))
}
