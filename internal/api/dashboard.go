package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/engine"
	ws "github.com/Priya8975/webhook-notifier/internal/websocket"
)

type DashboardHandler struct {
	engine     *engine.Engine
	hub        *ws.Hub
	publicHost string
	logger     *slog.Logger
}

func NewDashboardHandler(e *engine.Engine, hub *ws.Hub, publicHost string, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{engine: e, hub: hub, publicHost: publicHost, logger: logger}
}

// Summary returns totals and the most recent log entries.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	type summaryResponse struct {
		*domain.Dashboard
		WebSocketClients int `json:"websocket_clients"`
	}

	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, summaryResponse{
		Dashboard:        d,
		WebSocketClients: clients,
	})
}

// Logs lists the global log, newest first.
func (h *DashboardHandler) Logs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.engine.ListLogs(r.Context(), "", queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// Config tells the UI which host to print in webhook URLs.
func (h *DashboardHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"host": h.publicHost})
}
