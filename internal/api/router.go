package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"qfront/internal/middleware"
	"qfront/internal/ratelimit"
)

// RouterConfig wires the HTTP API.
type RouterConfig struct {
	Handler            *APIHandler
	Validator          middleware.JWTValidator // nil disables auth
	Limiter            *ratelimit.Clients      // nil disables rate limiting
	CORSAllowedOrigins []string
	Logger             *slog.Logger
	StartTime          time.Time
}

// NewRouter builds the chi router:
//
//	GET  /health
//	POST /v1/tokenize
//	POST /v1/parse
//	GET  /v1/history
//	GET  /v1/ws
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	started := cfg.StartTime
	if started.IsZero() {
		started = time.Now()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"uptime_seconds": int(time.Since(started).Seconds()),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(middleware.RateLimiter(cfg.Limiter))
		}
		r.Use(middleware.Authenticator(cfg.Validator, logger))

		r.Post("/tokenize", cfg.Handler.Tokenize)
		r.Post("/parse", cfg.Handler.Parse)
		r.Get("/history", cfg.Handler.ListHistory)
		r.Get("/ws", cfg.Handler.Stream(origins))
	})

	return r
}
