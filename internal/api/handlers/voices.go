package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/ttsproxy/internal/tts"
)

type VoiceHandler struct {
	catalog *tts.Catalog
}

func NewVoiceHandler(catalog *tts.Catalog) *VoiceHandler {
	return &VoiceHandler{catalog: catalog}
}

// List handles GET /voices. The l parameter filters by locale substring.
func (h *VoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	voices, err := h.catalog.Voices(r.Context(), r.URL.Query().Get("l"))
	if err != nil {
		slog.Error("voice list failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to fetch voice list"})
		return
	}
	writeJSON(w, http.StatusOK, voices)
}
