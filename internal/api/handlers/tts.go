package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/nikhilbhutani/ttsproxy/internal/config"
	"github.com/nikhilbhutani/ttsproxy/internal/tts"
)

type TTSHandler struct {
	client *tts.Client
	cfg    config.TTSConfig
}

func NewTTSHandler(client *tts.Client, cfg config.TTSConfig) *TTSHandler {
	return &TTSHandler{client: client, cfg: cfg}
}

// Speak handles GET /tts. Query parameters: t (text), v (voice), r (rate),
// p (pitch), s (style), o (output format), d (download).
func (h *TTSHandler) Speak(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	text := q.Get("t")
	if !h.textWithinBound(text) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text exceeds maximum length"})
		return
	}

	voice := q.Get("v")
	if voice == "" {
		voice = h.cfg.DefaultVoice
	}
	style := q.Get("s")
	if style == "" {
		style = "general"
	}
	format := q.Get("o")
	if format == "" {
		format = h.cfg.DefaultFormat
	}

	req := tts.SynthesisRequest{
		Text:         text,
		Voice:        voice,
		Rate:         clampPercent(atoiDefault(q.Get("r"), 0)),
		Pitch:        clampPercent(atoiDefault(q.Get("p"), 0)),
		Style:        style,
		OutputFormat: format,
		Download:     q.Get("d") == "true",
	}

	result, err := h.client.Synthesize(r.Context(), req)
	if err != nil {
		writeSynthesisError(w, err)
		return
	}
	writeAudio(w, result)
}

func (h *TTSHandler) textWithinBound(text string) bool {
	return h.cfg.MaxTextLength <= 0 || utf8.RuneCountInString(text) <= h.cfg.MaxTextLength
}

func writeAudio(w http.ResponseWriter, result *tts.SynthesisResult) {
	w.Header().Set("Content-Type", result.ContentType)
	if result.Disposition != "" {
		w.Header().Set("Content-Disposition", result.Disposition)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(result.Audio)
}

// writeSynthesisError mirrors upstream failures verbatim and maps everything
// else (network errors, credential issuing failures) to a 502.
func writeSynthesisError(w http.ResponseWriter, err error) {
	var ue *tts.UpstreamError
	if errors.As(err, &ue) {
		w.WriteHeader(ue.StatusCode)
		w.Write([]byte(ue.Body))
		return
	}

	slog.Error("synthesis failed", "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
}

func atoiDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func clampPercent(n int) int {
	if n > 100 {
		return 100
	}
	if n < -100 {
		return -100
	}
	return n
}
