package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Priya8975/webhook-notifier/internal/engine"
)

// IngestHandler serves the public webhook endpoint. The target id in the
// path is the only credential.
type IngestHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewIngestHandler(e *engine.Engine, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{engine: e, logger: logger}
}

func (h *IngestHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "targetId")

	data, err := readWebhookBody(w, r)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, errInvalidJSON):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusBadRequest, "invalid request body")
		}
		return
	}

	_, err = h.engine.Ingest(r.Context(), engine.IngestRequest{
		TargetID:   id,
		SourceAddr: sourceAddr(r),
		Data:       data,
	})
	if err != nil {
		var rl *engine.RateLimitError
		if errors.As(err, &rl) && rl.Window > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.Window.Seconds()))))
		}
		respondServiceError(w, h.logger, err)
		return
	}

	respondSuccess(w)
}
