package domain

import (
	"encoding/json"
	"time"
)

// MaxLogEntries caps the global delivery log.
const MaxLogEntries = 500

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "Sent"
	DeliveryFailed  DeliveryStatus = "Failed"
	DeliverySkipped DeliveryStatus = "Skipped"
)

// LogEntry records what happened to one inbound event. Entries are never
// modified after they are appended.
type LogEntry struct {
	ID             string          `json:"id"`
	TargetID       string          `json:"target_id"`
	TargetName     string          `json:"target_name"`
	PayloadID      string          `json:"payload_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	Recipient      string          `json:"recipient,omitempty"`
	Subject        string          `json:"subject,omitempty"`
	Body           string          `json:"body,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Message is a rendered notification.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	IsHTML  bool   `json:"is_html"`
}

type Dashboard struct {
	TotalTargets  int        `json:"total_targets"`
	ActiveTargets int        `json:"active_targets"`
	TotalSenders  int        `json:"total_senders"`
	RecentLogs    []LogEntry `json:"recent_logs"`
}
