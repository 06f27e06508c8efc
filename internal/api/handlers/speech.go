package handlers

import (
	"encoding/json"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/ttsproxy/internal/tts"
)

const opusOutputFormat = "audio-48khz-192kbitrate-mono-opus"

// openAIVoiceMap translates OpenAI voice names to synthesis voices. Unknown
// names pass through verbatim so callers can address any upstream voice
// directly.
var openAIVoiceMap = map[openai.SpeechVoice]string{
	openai.VoiceAlloy:   "zh-CN-XiaoxiaoMultilingualNeural",
	openai.VoiceEcho:    "zh-CN-YunxiNeural",
	openai.VoiceFable:   "zh-CN-XiaomoNeural",
	openai.VoiceOnyx:    "zh-CN-YunjianNeural",
	openai.VoiceNova:    "zh-CN-XiaochenNeural",
	openai.VoiceShimmer: "en-US-AriaNeural",
}

// SpeakOpenAI handles POST /v1/audio/speech (and /audio/speech) with the
// OpenAI speech request schema.
func (h *TTSHandler) SpeakOpenAI(w http.ResponseWriter, r *http.Request) {
	var req openai.CreateSpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Model == "" || req.Input == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "model and input are required"})
		return
	}
	if !h.textWithinBound(req.Input) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input exceeds maximum length"})
		return
	}

	voice := h.cfg.DefaultVoice
	if req.Voice != "" {
		if mapped, ok := openAIVoiceMap[req.Voice]; ok {
			voice = mapped
		} else {
			voice = string(req.Voice)
		}
	}

	// OpenAI speed is 0.25-4.0 with 1.0 as normal; rate is -100..100 with 0
	// as normal.
	rate := 0
	if req.Speed > 0 {
		rate = clampPercent(int(math.Round((req.Speed - 1.0) * 100)))
	}

	format := h.cfg.DefaultFormat
	if req.ResponseFormat == openai.SpeechResponseFormatOpus {
		format = opusOutputFormat
	}

	// The model field doubles as the expressive style; reader clients send
	// style names ("cheerful") where an OpenAI client sends "tts-1".
	result, err := h.client.Synthesize(r.Context(), tts.SynthesisRequest{
		Text:         req.Input,
		Voice:        voice,
		Rate:         rate,
		Style:        string(req.Model),
		OutputFormat: format,
	})
	if err != nil {
		writeSynthesisError(w, err)
		return
	}
	writeAudio(w, result)
}
