package server

import (
	"net/http"

	"github.com/wgdzlh/geoview/internal/config"
	"github.com/wgdzlh/geoview/internal/gdalbox"
	"github.com/wgdzlh/geoview/internal/ingest"
	"github.com/wgdzlh/geoview/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	cfg    config.Config
	box    *gdalbox.Toolbox
	orch   *ingest.Orchestrator
	logTag string
}

func New(cfg config.Config, box *gdalbox.Toolbox, orch *ingest.Orchestrator) *Server {
	return &Server{
		cfg:    cfg,
		box:    box,
		orch:   orch,
		logTag: "Server:",
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/upload", s.handleUpload)
	r.Route("/geoprocess", func(r chi.Router) {
		r.Post("/clip", s.handleClip)
		r.Post("/intersect", s.handleIntersect)
		r.Post("/buffer", s.handleBuffer)
		r.Post("/near", s.handleNear)
	})
	return r
}
