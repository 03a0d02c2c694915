package domain

import (
	"time"

	"github.com/Priya8975/webhook-notifier/internal/variables"
)

// MaxPayloads is how many payloads a target keeps, newest first.
const MaxPayloads = 50

type TargetStatus string

const (
	StatusDraft  TargetStatus = "Draft"
	StatusActive TargetStatus = "Active"
)

func (s TargetStatus) Valid() bool {
	return s == StatusDraft || s == StatusActive
}

type EmailTemplate struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	IsHTML  bool   `json:"is_html"`
}

// Target is a webhook endpoint together with its payload history and the
// notification it sends when active.
type Target struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Status            TargetStatus         `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
	LastActiveAt      *time.Time           `json:"last_active_at,omitempty"`
	Payloads          []Payload            `json:"payloads"`
	SelectedPayloadID *string              `json:"selected_payload_id"`
	Variables         []variables.Variable `json:"variables"`
	Template          EmailTemplate        `json:"template"`
	SenderID          *string              `json:"sender_id"`
}

// NewTarget returns a draft target with no payloads and no sender.
func NewTarget(name string, now time.Time) *Target {
	if name == "" {
		name = "Untitled Webhook"
	}
	return &Target{
		ID:        NewTargetID(),
		Name:      name,
		Status:    StatusDraft,
		CreatedAt: now,
		Payloads:  []Payload{},
		Variables: []variables.Variable{},
	}
}

// AddPayload prepends p, drops payloads beyond MaxPayloads and repairs the
// selection. It returns the number of evicted payloads.
func (t *Target) AddPayload(p Payload) int {
	t.Payloads = append([]Payload{p}, t.Payloads...)
	evicted := 0
	if len(t.Payloads) > MaxPayloads {
		evicted = len(t.Payloads) - MaxPayloads
		t.Payloads = t.Payloads[:MaxPayloads]
	}
	t.NormalizeSelection()
	return evicted
}

// RemovePayload deletes the payload with the given id. It reports whether
// anything was removed.
func (t *Target) RemovePayload(id string) bool {
	for i, p := range t.Payloads {
		if p.ID == id {
			t.Payloads = append(t.Payloads[:i:i], t.Payloads[i+1:]...)
			t.NormalizeSelection()
			return true
		}
	}
	return false
}

// SelectPayload marks the payload with the given id as selected.
func (t *Target) SelectPayload(id string) bool {
	if t.payloadIndex(id) < 0 {
		return false
	}
	t.SelectedPayloadID = &id
	return true
}

// NormalizeSelection points the selection at the newest payload when it is
// unset or names a payload that no longer exists, and clears it when there
// are no payloads.
func (t *Target) NormalizeSelection() {
	if len(t.Payloads) == 0 {
		t.SelectedPayloadID = nil
		return
	}
	if t.SelectedPayloadID != nil && t.payloadIndex(*t.SelectedPayloadID) >= 0 {
		return
	}
	id := t.Payloads[0].ID
	t.SelectedPayloadID = &id
}

// ActivePayload returns the selected payload, falling back to the newest.
func (t *Target) ActivePayload() *Payload {
	if t.SelectedPayloadID != nil {
		if i := t.payloadIndex(*t.SelectedPayloadID); i >= 0 {
			return &t.Payloads[i]
		}
	}
	if len(t.Payloads) > 0 {
		return &t.Payloads[0]
	}
	return nil
}

// RefreshVariables recomputes the cached variables from the newest payload.
func (t *Target) RefreshVariables() {
	if len(t.Payloads) == 0 {
		t.Variables = []variables.Variable{}
		return
	}
	t.Variables = variables.Discover(t.Payloads[0].Data)
}

// Clone returns a deep copy. Payload data is shared since it is never mutated.
func (t *Target) Clone() *Target {
	if t == nil {
		return nil
	}
	c := *t
	c.Payloads = append([]Payload(nil), t.Payloads...)
	if c.Payloads == nil {
		c.Payloads = []Payload{}
	}
	c.Variables = append([]variables.Variable(nil), t.Variables...)
	if c.Variables == nil {
		c.Variables = []variables.Variable{}
	}
	c.LastActiveAt = cloneTime(t.LastActiveAt)
	c.SelectedPayloadID = cloneString(t.SelectedPayloadID)
	c.SenderID = cloneString(t.SenderID)
	return &c
}

func (t *Target) payloadIndex(id string) int {
	for i, p := range t.Payloads {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// TargetDetail is a target as returned to API clients, with the variables of
// its active payload.
type TargetDetail struct {
	*Target
	ActiveVariables []variables.Variable `json:"active_variables"`
	ActivePayload   *Payload             `json:"active_payload"`
}

func NewTargetDetail(t *Target) TargetDetail {
	d := TargetDetail{Target: t, ActiveVariables: []variables.Variable{}}
	if p := t.ActivePayload(); p != nil {
		d.ActivePayload = p
		d.ActiveVariables = variables.Discover(p.Data)
	}
	return d
}

type CreateTargetRequest struct {
	Name string `json:"name"`
}

type UpdateTargetRequest struct {
	Name     *string        `json:"name,omitempty"`
	Status   *TargetStatus  `json:"status,omitempty"`
	Template *EmailTemplate `json:"template,omitempty"`
	SenderID *string        `json:"sender_id,omitempty"`
}

// Apply copies the set fields onto t. An empty SenderID clears the sender.
func (r UpdateTargetRequest) Apply(t *Target) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Status != nil {
		t.Status = *r.Status
	}
	if r.Template != nil {
		t.Template = *r.Template
	}
	if r.SenderID != nil {
		if *r.SenderID == "" {
			t.SenderID = nil
		} else {
			id := *r.SenderID
			t.SenderID = &id
		}
	}
}

type RegenerateResponse struct {
	NewID string `json:"new_id"`
	OldID string `json:"old_id"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
