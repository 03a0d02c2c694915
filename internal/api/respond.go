package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-notifier/internal/engine"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type successResponse struct {
	Success bool `json:"success"`
}

func respondSuccess(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

// respondServiceError maps an engine error onto its status code and message.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	rich := engine.ServiceError(err)
	if rich.Code >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "text_code", rich.TextCode)
	}
	respondError(w, rich.Code, rich.Message)
}

// decodeJSON reads an optional JSON request body into v. An empty body
// leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return err
}

// respondDecodeError answers a failed decodeJSON.
func respondDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge.Error())
		return
	}
	respondError(w, http.StatusBadRequest, "invalid request body")
}
