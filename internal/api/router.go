package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/ytgrabba/internal/api/handler"
	mw "github.com/iconidentify/ytgrabba/internal/api/middleware"
)

// RouterConfig holds router options.
type RouterConfig struct {
	CORSOrigin string
	// MetadataTimeout bounds /api/videoinfo. Downloads are bounded only by
	// the server write timeout and the engine timeout.
	MetadataTimeout time.Duration
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	videoHandler *handler.VideoHandler,
	healthHandler *handler.HealthHandler,
	cfg RouterConfig,
) *chi.Mux {
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = 2 * time.Minute
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(cfg.CORSOrigin))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Live)
		r.Get("/ready", healthHandler.Ready)
		r.Get("/stats", healthHandler.Stats)

		r.With(middleware.Timeout(cfg.MetadataTimeout)).Get("/videoinfo", videoHandler.VideoInfo)
		r.Get("/download", videoHandler.Download)
	})

	return r
}
