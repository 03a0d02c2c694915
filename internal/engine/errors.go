package engine

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

const (
	TextCodeTargetNotFound  = "TARGET_NOT_FOUND"
	TextCodePayloadNotFound = "PAYLOAD_NOT_FOUND"
	TextCodeSenderNotFound  = "SENDER_NOT_FOUND"
	TextCodeRateLimited     = "RATE_LIMITED"
	TextCodeStorageFailed   = "STORAGE_FAILED"
	TextCodeBadInput        = "BAD_INPUT"
)

// RateLimitError reports which tier denied an ingestion.
type RateLimitError struct {
	Tier   domain.Tier
	Limit  int
	Window time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Tier.Message()
}

func (e *RateLimitError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(TextCodeRateLimited).
		WithMetadata(map[string]any{
			"tier":      string(e.Tier),
			"limit":     e.Limit,
			"window_ms": e.Window.Milliseconds(),
		})
}

func targetNotFound(id string) error {
	return goerrors.New("Webhook not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeTargetNotFound).
		WithMetadata(map[string]any{"target_id": id})
}

func payloadNotFound(id string) error {
	return goerrors.New("Payload not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodePayloadNotFound).
		WithMetadata(map[string]any{"payload_id": id})
}

func senderNotFound(id string) error {
	return goerrors.New("Sender not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeSenderNotFound).
		WithMetadata(map[string]any{"sender_id": id})
}

func storageFailed(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("storage failed: %s", op)).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeStorageFailed)
}

func badInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeBadInput)
}

// ServiceError maps any engine error onto a go-errors envelope.
func ServiceError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.ToServiceError()
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "internal error").
		WithCode(http.StatusInternalServerError).
		WithTextCode("INTERNAL")
}

func IsNotFound(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryNotFound
}

func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// RateLimitTier returns the denying tier of a rate-limit error.
func RateLimitTier(err error) (domain.Tier, bool) {
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		return "", false
	}
	return rl.Tier, true
}

func IsStorageFailed(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeStorageFailed
}

func IsBadInput(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryBadInput
}
