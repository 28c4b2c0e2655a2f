package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/api/handler"
	apimw "github.com/dynaerp/notify-engine/internal/api/middleware"
	"github.com/dynaerp/notify-engine/internal/engine"
	"github.com/dynaerp/notify-engine/internal/queue"
	"github.com/dynaerp/notify-engine/internal/repository"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	eng *engine.Engine,
	repo repository.NotificationRepository,
	q *queue.Queue,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	eh := handler.NewEventHandler(eng, logger)
	nh := handler.NewNotificationHandler(repo, logger)
	mh := handler.NewMetricsHandler(q)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Internal surface: only the ERP write path posts here.
	r.Post("/internal/v1/events", eh.Ingest)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/notifications", nh.List)
		r.Post("/notifications/{id}/read", nh.MarkRead)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
