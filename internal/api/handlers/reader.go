package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReaderHandler serves the configuration payloads that reader apps import to
// point themselves at this gateway's /tts endpoint.
type ReaderHandler struct{}

func NewReaderHandler() *ReaderHandler {
	return &ReaderHandler{}
}

// Reader handles GET /reader.json. The URL template placeholders
// ({{java.encodeURI(speakText)}}, {{speakSpeed*4}}) are expanded by the
// reader app, not by this service.
func (h *ReaderHandler) Reader(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := q.Get("n")
	if name == "" {
		name = "Microsoft TTS"
	}

	params := []string{"t={{java.encodeURI(speakText)}}", "r={{speakSpeed*4}}"}
	if v := q.Get("v"); v != "" {
		params = append(params, "v="+v)
	}
	if p := q.Get("p"); p != "" {
		params = append(params, "p="+p)
	}
	if s := q.Get("s"); s != "" {
		params = append(params, "s="+s)
	}
	if key := q.Get("api_key"); key != "" {
		params = append(params, "api_key="+key)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":   time.Now().UnixMilli(),
		"name": name,
		"url":  requestBaseURL(r) + "/tts?" + strings.Join(params, "&"),
	})
}

// IFreeTime handles GET /ifreetime.json with the custom-TTS config schema the
// IFreeTime app imports. %@ is the app's text placeholder.
func (h *ReaderHandler) IFreeTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := q.Get("n")
	if name == "" {
		name = "Microsoft TTS"
	}

	params := map[string]string{
		"t": "%@",
		"v": q.Get("v"),
		"r": q.Get("r"),
		"p": q.Get("p"),
		"s": q.Get("s"),
	}
	if key := q.Get("api_key"); key != "" {
		params["api_key"] = key
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loginUrl":       "",
		"maxWordCount":   "",
		"customRules":    map[string]interface{}{},
		"ttsConfigGroup": "Azure",
		"_TTSName":       name,
		"_ClassName":     "JxdAdvCustomTTS",
		"_TTSConfigID":   uuid.NewString(),
		"httpConfigs": map[string]interface{}{
			"useCookies": 1,
			"headers":    map[string]interface{}{},
		},
		"voiceList": []interface{}{},
		"ttsHandles": []map[string]interface{}{
			{
				"paramsEx":         "",
				"processType":      1,
				"maxPageCount":     1,
				"nextPageMethod":   1,
				"method":           1,
				"requestByWebView": 0,
				"parser":           map[string]interface{}{},
				"nextPageParams":   map[string]interface{}{},
				"url":              requestBaseURL(r) + "/tts",
				"params":           params,
				"httpConfigs": map[string]interface{}{
					"useCookies": 1,
					"headers":    map[string]interface{}{},
				},
			},
		},
	})
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
