package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Handle("/metrics", promhttp.Handler())

	limited := rateLimit(app.RateLimit, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.With(limited).Post("/scans", app.CreateScanHandler)
		r.Get("/scans/{id}", app.GetScanHandler)
		r.Delete("/scans/{id}", app.DeleteScanHandler)
		r.Get("/scans/{id}/events", app.ScanEventsHandler)
		r.With(limited).Post("/scans/{id}/start", app.StartScanHandler)
		r.Post("/scans/{id}/reset", app.ResetScanHandler)

		r.With(limited).Post("/candidates", app.CandidatesHandler)
	})

	return r
}
