package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

// APIKeyMiddleware gates requests behind the single configured gateway key.
// The key is accepted as an api_key query parameter, the configured header,
// or a Bearer token, so reader apps, curl, and OpenAI clients all work.
type APIKeyMiddleware struct {
	keyHash    string // sha256 hex of the configured key; empty disables auth
	headerName string
}

func NewAPIKeyMiddleware(key, headerName string) *APIKeyMiddleware {
	m := &APIKeyMiddleware{headerName: headerName}
	if key != "" {
		m.keyHash = HashAPIKey(key)
	}
	return m
}

func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := extractKey(r, m.headerName)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		hash := HashAPIKey(key)
		if subtle.ConstantTimeCompare([]byte(hash), []byte(m.keyHash)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractKey(r *http.Request, headerName string) string {
	if key := r.URL.Query().Get("api_key"); key != "" {
		return key
	}
	if key := r.Header.Get(headerName); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
