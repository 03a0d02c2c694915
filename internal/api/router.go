package api

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Priya8975/webhook-notifier/internal/engine"
	"github.com/Priya8975/webhook-notifier/internal/metrics"
	ws "github.com/Priya8975/webhook-notifier/internal/websocket"
)

const defaultIngestConcurrency = 100

type RouterDeps struct {
	Engine   *engine.Engine
	Settings *engine.SettingsCache
	Verifier SenderVerifier
	Hub      *ws.Hub
	Metrics  *metrics.Recorder
	Store    Pinger
	Logger   *slog.Logger

	PublicHost string
	// IngestConcurrency caps in-flight webhook calls; excess calls get a 429.
	IngestConcurrency int
	// TrustedProxies may set the caller address through forwarding headers.
	TrustedProxies []netip.Prefix
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d RouterDeps) http.Handler {
	if d.IngestConcurrency <= 0 {
		d.IngestConcurrency = defaultIngestConcurrency
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(realIP(d.TrustedProxies))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(d.Metrics.HTTPMiddleware)
	r.Use(corsMiddleware(d.Settings, d.Logger))

	ingestHandler := NewIngestHandler(d.Engine, d.Logger)
	targetHandler := NewTargetHandler(d.Engine, d.Logger)
	senderHandler := NewSenderHandler(d.Engine, d.Verifier, d.Logger)
	settingsHandler := NewSettingsHandler(d.Settings, d.Logger)
	dashHandler := NewDashboardHandler(d.Engine, d.Hub, d.PublicHost, d.Logger)

	// Public ingestion endpoint
	r.With(ingestThrottle(d.IngestConcurrency)).Post("/webhooks/{targetId}", ingestHandler.Receive)

	if d.Hub != nil {
		r.Get("/ws", d.Hub.HandleWebSocket)
	}
	r.Handle("/metrics", d.Metrics.Handler())

	r.Get("/api/v1/health", HealthHandler(d.Store))

	// Management API
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", dashHandler.Summary)
		r.Get("/logs", dashHandler.Logs)
		r.Get("/config", dashHandler.Config)

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", targetHandler.List)
			r.Post("/", targetHandler.Create)
			r.Get("/{id}", targetHandler.Get)
			r.Put("/{id}", targetHandler.Update)
			r.Delete("/{id}", targetHandler.Delete)
			r.Post("/{id}/regenerate", targetHandler.Regenerate)
			r.Post("/{id}/payloads", targetHandler.AddPayload)
			r.Delete("/{id}/payloads/{payloadId}", targetHandler.DeletePayload)
			r.Put("/{id}/selected-payload", targetHandler.SelectPayload)
			r.Post("/{id}/test-email", targetHandler.TestEmail)
			r.Get("/{id}/logs", targetHandler.Logs)
			r.Delete("/{id}/logs", targetHandler.ClearLogs)
		})

		r.Route("/senders", func(r chi.Router) {
			r.Get("/", senderHandler.List)
			r.Post("/", senderHandler.Create)
			r.Post("/verify", senderHandler.Verify)
			r.Get("/{id}", senderHandler.Get)
			r.Put("/{id}", senderHandler.Update)
			r.Delete("/{id}", senderHandler.Delete)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/rate-limit", settingsHandler.GetRateLimits)
			r.Post("/rate-limit", settingsHandler.UpdateRateLimits)
			r.Get("/cors", settingsHandler.GetCORS)
			r.Post("/cors", settingsHandler.AddCORS)
			r.Delete("/cors", settingsHandler.RemoveCORS)
		})
	})

	return r
}
