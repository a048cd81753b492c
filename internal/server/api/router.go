package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/livingcodex/codex/internal/codex/telemetry"
)

// Router builds the HTTP routes for the server.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(s.instrument)

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/nodes", s.CreateNode)
		r.Get("/nodes", s.ListNodes)
		r.Get("/nodes/{id}", s.GetNode)
		r.Put("/nodes/{id}", s.UpdateNode)
		r.Delete("/nodes/{id}", s.DeleteNode)
		r.Get("/nodes/{id}/network", s.GetNetwork)
		r.Post("/nodes/{id}/children", s.AddChild)
		r.Post("/links", s.CreateLink)
		r.Get("/search", s.Search)
		r.Get("/metrics", s.GetMetrics)
		r.Get("/verify", s.Verify)
		r.Get("/export", s.Export)
		r.Post("/import", s.Import)
		r.Post("/save", s.Save)
	})

	return r
}

// instrument records request counts and latency, and republishes store
// gauges after any mutating request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		telemetry.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		telemetry.APIRequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			telemetry.Publish(s.codex.MetricsSnapshot())
		}

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
