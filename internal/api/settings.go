package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/engine"
)

type SettingsHandler struct {
	settings *engine.SettingsCache
	logger   *slog.Logger
}

func NewSettingsHandler(s *engine.SettingsCache, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: s, logger: logger}
}

// GetRateLimits shows the limits in force, with unset tiers at their defaults.
func (h *SettingsHandler) GetRateLimits(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Settings(r.Context())
	if err != nil {
		h.logger.Warn("reading settings, showing defaults", "error", err)
	}
	respondJSON(w, http.StatusOK, s.RateLimits.Effective())
}

// UpdateRateLimits merges the posted fields into the current limits. The
// new values apply from the next webhook call.
func (h *SettingsHandler) UpdateRateLimits(w http.ResponseWriter, r *http.Request) {
	var patch domain.RateConfigPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondDecodeError(w, err)
		return
	}
	if invalidPatch(patch) {
		respondError(w, http.StatusBadRequest, "limits and windows must not be negative")
		return
	}

	if _, err := h.settings.Update(r.Context(), func(s *domain.Settings) {
		s.RateLimits = s.RateLimits.Merge(patch)
	}); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondSuccess(w)
}

func invalidPatch(p domain.RateConfigPatch) bool {
	for _, v := range []*int{p.SourceLimit, p.TargetLimit, p.BurstLimit} {
		if v != nil && *v < 0 {
			return true
		}
	}
	for _, v := range []*int64{p.SourceWindowMs, p.TargetWindowMs, p.BurstWindowMs} {
		if v != nil && *v < 0 {
			return true
		}
	}
	return false
}

func (h *SettingsHandler) GetCORS(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Settings(r.Context())
	if err != nil {
		h.logger.Warn("reading settings, showing defaults", "error", err)
	}
	respondJSON(w, http.StatusOK, s.CORSOrigins)
}

func (h *SettingsHandler) AddCORS(w http.ResponseWriter, r *http.Request) {
	h.changeOrigins(w, r, (*domain.Settings).AddOrigin)
}

func (h *SettingsHandler) RemoveCORS(w http.ResponseWriter, r *http.Request) {
	h.changeOrigins(w, r, (*domain.Settings).RemoveOrigin)
}

func (h *SettingsHandler) changeOrigins(w http.ResponseWriter, r *http.Request, change func(*domain.Settings, string) bool) {
	var req domain.OriginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	origin := strings.TrimSpace(req.Origin)
	if origin == "" {
		respondError(w, http.StatusBadRequest, "Origin is required")
		return
	}

	if _, err := h.settings.Update(r.Context(), func(s *domain.Settings) {
		change(s, origin)
	}); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondSuccess(w)
}
