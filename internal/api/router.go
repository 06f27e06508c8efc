package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/ttsproxy/internal/api/handlers"
	"github.com/nikhilbhutani/ttsproxy/internal/api/middleware"
	"github.com/nikhilbhutani/ttsproxy/internal/auth"
	"github.com/nikhilbhutani/ttsproxy/internal/config"
	"github.com/nikhilbhutani/ttsproxy/internal/tts"
)

type Router struct {
	mux     *chi.Mux
	redis   *redis.Client
	cfg     *config.Config
	apikey  *auth.APIKeyMiddleware
	client  *tts.Client
	catalog *tts.Catalog
}

// NewRouter wires the synthesis core. An error here means the embedded
// signing key constant is corrupt, which is fatal.
func NewRouter(rdb *redis.Client, cfg *config.Config) (*Router, error) {
	signer, err := tts.NewSigner()
	if err != nil {
		return nil, err
	}
	creds := tts.NewCredentialManager(signer, tts.CredentialManagerConfig{})

	return &Router{
		mux:     chi.NewRouter(),
		redis:   rdb,
		cfg:     cfg,
		apikey:  auth.NewAPIKeyMiddleware(cfg.Auth.APIKey, cfg.Auth.APIKeyHeader),
		client:  tts.NewClient(creds, tts.ClientConfig{}),
		catalog: tts.NewCatalog(rdb, tts.CatalogConfig{}),
	}, nil
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Probes and the voice catalog are not gated.
	health := handlers.NewHealthHandler(rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	voiceH := handlers.NewVoiceHandler(rt.catalog)
	r.Get("/voices", voiceH.List)

	ttsH := handlers.NewTTSHandler(rt.client, rt.cfg.TTS)
	readerH := handlers.NewReaderHandler()
	r.Group(func(r chi.Router) {
		r.Use(rt.apikey.Authenticate)

		r.Get("/tts", ttsH.Speak)
		r.Post("/v1/audio/speech", ttsH.SpeakOpenAI)
		r.Post("/audio/speech", ttsH.SpeakOpenAI)
		r.Get("/reader.json", readerH.Reader)
		r.Get("/ifreetime.json", readerH.IFreeTime)
	})

	return r
}
