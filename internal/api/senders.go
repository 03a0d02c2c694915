package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/engine"
)

// SenderVerifier checks that a sender's SMTP server accepts a session.
type SenderVerifier interface {
	Verify(ctx context.Context, sender domain.Sender) error
}

type SenderHandler struct {
	engine   *engine.Engine
	verifier SenderVerifier
	logger   *slog.Logger
}

func NewSenderHandler(e *engine.Engine, v SenderVerifier, logger *slog.Logger) *SenderHandler {
	return &SenderHandler{engine: e, verifier: v, logger: logger}
}

// senderView is a sender as shown to clients, secret redacted, with its
// circuit state.
type senderView struct {
	domain.Sender
	CircuitBreaker engine.BreakerState `json:"circuit_breaker"`
}

func (h *SenderHandler) view(ctx context.Context, s domain.Sender) senderView {
	return senderView{
		Sender:         s.Redacted(),
		CircuitBreaker: h.engine.SenderState(ctx, s.ID),
	}
}

func (h *SenderHandler) List(w http.ResponseWriter, r *http.Request) {
	senders, err := h.engine.ListSenders(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	result := make([]senderView, 0, len(senders))
	for _, s := range senders {
		result = append(result, h.view(r.Context(), s))
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *SenderHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.LookupSender(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(r.Context(), *s))
}

func (h *SenderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.SenderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	s, err := h.engine.CreateSender(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.view(r.Context(), *s))
}

func (h *SenderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.SenderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	s, err := h.engine.UpdateSender(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(r.Context(), *s))
}

func (h *SenderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteSender(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondSuccess(w)
}

type verifyRequest struct {
	ID string `json:"id,omitempty"`
	domain.SenderRequest
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Verify tests SMTP connectivity for a stored sender (by id, with optional
// overrides) or for an unsaved configuration. The outcome is reported in the
// body with a 200.
func (h *SenderHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	var sender domain.Sender
	if req.ID != "" {
		stored, err := h.engine.LookupSender(r.Context(), req.ID)
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
		sender = *stored
	}
	req.SenderRequest.Apply(&sender)
	if err := sender.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.verifier.Verify(r.Context(), sender); err != nil {
		respondJSON(w, http.StatusOK, verifyResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, verifyResponse{Success: true})
}
