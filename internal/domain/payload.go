package domain

import (
	"encoding/json"
	"time"
)

type PayloadSource string

const (
	SourceManual  PayloadSource = "Manual"
	SourceWebhook PayloadSource = "Webhook"
)

// Payload is one received (or hand-entered) event body. Data is kept exactly
// as received so key order survives.
type Payload struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Source    PayloadSource   `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewWebhookPayload builds the payload recorded for an inbound event.
func NewWebhookPayload(data json.RawMessage, now time.Time) Payload {
	return Payload{
		ID:        NewPayloadID(),
		Name:      "Event " + now.Format("15:04:05"),
		Source:    SourceWebhook,
		Timestamp: now,
		Data:      data,
	}
}

// NewManualPayload builds a payload entered through the management API.
func NewManualPayload(name string, data json.RawMessage, now time.Time) Payload {
	if name == "" {
		name = "Manual Payload"
	}
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage(`{}`)
	}
	return Payload{
		ID:        NewPayloadID(),
		Name:      name,
		Source:    SourceManual,
		Timestamp: now,
		Data:      data,
	}
}

type AddPayloadRequest struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

type SelectPayloadRequest struct {
	PayloadID string `json:"payload_id"`
}
