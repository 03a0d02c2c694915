package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/engine"
)

type TargetHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewTargetHandler(e *engine.Engine, logger *slog.Logger) *TargetHandler {
	return &TargetHandler{engine: e, logger: logger}
}

func (h *TargetHandler) List(w http.ResponseWriter, r *http.Request) {
	targets, err := h.engine.ListTargets(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, targets)
}

func (h *TargetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTargetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	t, err := h.engine.CreateTarget(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// Get returns the target with the variables of its active payload.
func (h *TargetHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.GetTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewTargetDetail(t))
}

func (h *TargetHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTargetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	t, err := h.engine.UpdateTarget(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewTargetDetail(t))
}

func (h *TargetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteTarget(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondSuccess(w)
}

func (h *TargetHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.RegenerateTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *TargetHandler) AddPayload(w http.ResponseWriter, r *http.Request) {
	var req domain.AddPayloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	p, err := h.engine.AddManualPayload(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *TargetHandler) DeletePayload(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.DeletePayload(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "payloadId"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewTargetDetail(t))
}

func (h *TargetHandler) SelectPayload(w http.ResponseWriter, r *http.Request) {
	var req domain.SelectPayloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.PayloadID == "" {
		respondError(w, http.StatusBadRequest, "payload_id is required")
		return
	}

	t, err := h.engine.SelectPayload(r.Context(), chi.URLParam(r, "id"), req.PayloadID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewTargetDetail(t))
}

// TestEmail renders and sends one message without logging it. Send failures
// are reported in the body with a 200.
func (h *TargetHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	var req engine.TestSendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	result, err := h.engine.TestSend(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Logs lists a target's entries. Entries outlive their target, so an unknown
// id is not an error.
func (h *TargetHandler) Logs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.engine.ListLogs(r.Context(), chi.URLParam(r, "id"), queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (h *TargetHandler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.ClearTargetLogs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Deleted int  `json:"deleted"`
	}{true, n})
}

// queryLimit reads ?limit=, zero meaning no limit.
func queryLimit(r *http.Request) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
