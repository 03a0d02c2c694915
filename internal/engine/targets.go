package engine

import (
	"context"
	"encoding/json"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

func (e *Engine) GetTarget(ctx context.Context, id string) (*domain.Target, error) {
	t, err := e.targets.GetTarget(ctx, id)
	if err != nil {
		return nil, storageFailed(err, "loading target")
	}
	if t == nil {
		return nil, targetNotFound(id)
	}
	return t, nil
}

func (e *Engine) ListTargets(ctx context.Context) ([]domain.Target, error) {
	targets, err := e.targets.ListTargets(ctx)
	if err != nil {
		return nil, storageFailed(err, "listing targets")
	}
	return targets, nil
}

func (e *Engine) CreateTarget(ctx context.Context, req domain.CreateTargetRequest) (*domain.Target, error) {
	t := domain.NewTarget(req.Name, e.now())
	if err := e.targets.PutTarget(ctx, t); err != nil {
		return nil, storageFailed(err, "saving target")
	}
	e.logger.Info("target created", "target_id", t.ID, "name", t.Name)
	return t, nil
}

// mutate loads a target under its lock, applies fn and stores the result.
func (e *Engine) mutate(ctx context.Context, id string, fn func(*domain.Target) error) (*domain.Target, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	t, err := e.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := e.targets.PutTarget(ctx, t); err != nil {
		return nil, storageFailed(err, "saving target")
	}
	return t, nil
}

func (e *Engine) UpdateTarget(ctx context.Context, id string, req domain.UpdateTargetRequest) (*domain.Target, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, badInput("status must be Draft or Active")
	}
	return e.mutate(ctx, id, func(t *domain.Target) error {
		req.Apply(t)
		return nil
	})
}

func (e *Engine) DeleteTarget(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	ok, err := e.targets.DeleteTarget(ctx, id)
	if err != nil {
		return storageFailed(err, "deleting target")
	}
	if !ok {
		return targetNotFound(id)
	}
	e.logger.Info("target deleted", "target_id", id)
	return nil
}

// RegenerateTarget moves a target to a fresh id, invalidating its old URL.
func (e *Engine) RegenerateTarget(ctx context.Context, id string) (*domain.RegenerateResponse, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	newID := domain.NewTargetID()
	ok, err := e.targets.RenameTarget(ctx, id, newID)
	if err != nil {
		return nil, storageFailed(err, "renaming target")
	}
	if !ok {
		return nil, targetNotFound(id)
	}
	e.logger.Info("target id regenerated", "old_id", id, "new_id", newID)
	return &domain.RegenerateResponse{NewID: newID, OldID: id}, nil
}

// AddManualPayload stores a hand-entered payload and selects it.
func (e *Engine) AddManualPayload(ctx context.Context, id string, req domain.AddPayloadRequest) (*domain.Payload, error) {
	if len(req.Data) > 0 && !json.Valid(req.Data) {
		return nil, badInput("data must be valid JSON")
	}
	p := domain.NewManualPayload(req.Name, req.Data, e.now())

	_, err := e.mutate(ctx, id, func(t *domain.Target) error {
		t.AddPayload(p)
		t.SelectPayload(p.ID)
		t.RefreshVariables()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (e *Engine) DeletePayload(ctx context.Context, id, payloadID string) (*domain.Target, error) {
	return e.mutate(ctx, id, func(t *domain.Target) error {
		if !t.RemovePayload(payloadID) {
			return payloadNotFound(payloadID)
		}
		t.RefreshVariables()
		return nil
	})
}

func (e *Engine) SelectPayload(ctx context.Context, id, payloadID string) (*domain.Target, error) {
	return e.mutate(ctx, id, func(t *domain.Target) error {
		if !t.SelectPayload(payloadID) {
			return payloadNotFound(payloadID)
		}
		return nil
	})
}

type TestSendRequest struct {
	Template *domain.EmailTemplate `json:"template,omitempty"`
	SenderID string                `json:"sender_id,omitempty"`
}

type TestSendResult struct {
	Success   bool           `json:"success"`
	MessageID string         `json:"message_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Rendered  domain.Message `json:"rendered"`
}

// TestSend renders a template against the target's active payload and sends
// it, without touching the delivery log. Template and sender default to the
// target's own.
func (e *Engine) TestSend(ctx context.Context, id string, req TestSendRequest) (*TestSendResult, error) {
	t, err := e.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	tmpl := t.Template
	if req.Template != nil {
		tmpl = *req.Template
	}
	senderID := req.SenderID
	if senderID == "" && t.SenderID != nil {
		senderID = *t.SenderID
	}
	if senderID == "" {
		return nil, badInput("Sender not found")
	}

	sender, err := e.senders.GetSender(ctx, senderID)
	if err != nil {
		return nil, storageFailed(err, "loading sender")
	}
	if sender == nil {
		return nil, badInput("Sender not found")
	}

	payload := t.ActivePayload()
	if payload == nil {
		return nil, badInput("No test data available for this webhook")
	}

	msg := renderMessage(tmpl, payload.Data)
	result := &TestSendResult{Rendered: msg}

	messageID, err := e.send(ctx, t.ID, *sender, msg)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Success = true
	result.MessageID = messageID
	return result, nil
}

// SenderState reports the circuit state of a sender, or closed when no
// breaker is configured.
func (e *Engine) SenderState(ctx context.Context, senderID string) BreakerState {
	if e.breaker == nil {
		return BreakerState{State: StateClosed}
	}
	return e.breaker.State(ctx, senderID)
}

// ResetSender clears the circuit of an edited or removed sender.
func (e *Engine) ResetSender(ctx context.Context, senderID string) {
	if e.breaker != nil {
		e.breaker.Reset(ctx, senderID)
	}
}

// LookupSender returns the stored sender or a not-found error.
func (e *Engine) LookupSender(ctx context.Context, id string) (*domain.Sender, error) {
	s, err := e.senders.GetSender(ctx, id)
	if err != nil {
		return nil, storageFailed(err, "loading sender")
	}
	if s == nil {
		return nil, senderNotFound(id)
	}
	return s, nil
}
