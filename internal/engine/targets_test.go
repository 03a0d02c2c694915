package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

func TestCreateTarget_Defaults(t *testing.T) {
	env := setupEngine(t, unlimited())

	tg, err := env.engine.CreateTarget(context.Background(), domain.CreateTargetRequest{})
	if err != nil {
		t.Fatalf("CreateTarget() error: %v", err)
	}

	if tg.Name != "Untitled Webhook" {
		t.Errorf("expected default name, got %q", tg.Name)
	}
	if tg.Status != domain.StatusDraft {
		t.Errorf("expected draft, got %s", tg.Status)
	}
}

func TestUpdateTarget_InvalidStatus(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.draftTarget(t)

	bogus := domain.TargetStatus("Paused")
	_, err := env.engine.UpdateTarget(context.Background(), tg.ID, domain.UpdateTargetRequest{Status: &bogus})

	if !IsBadInput(err) {
		t.Errorf("expected bad input, got %v", err)
	}
}

func TestTargetOperations_UnknownTarget(t *testing.T) {
	env := setupEngine(t, unlimited())
	ctx := context.Background()
	newName := "x"

	ops := map[string]func() error{
		"get": func() error { _, err := env.engine.GetTarget(ctx, "nope"); return err },
		"update": func() error {
			_, err := env.engine.UpdateTarget(ctx, "nope", domain.UpdateTargetRequest{Name: &newName})
			return err
		},
		"delete":     func() error { return env.engine.DeleteTarget(ctx, "nope") },
		"regenerate": func() error { _, err := env.engine.RegenerateTarget(ctx, "nope"); return err },
		"add payload": func() error {
			_, err := env.engine.AddManualPayload(ctx, "nope", domain.AddPayloadRequest{})
			return err
		},
		"test send": func() error { _, err := env.engine.TestSend(ctx, "nope", TestSendRequest{}); return err },
	}

	for opName, op := range ops {
		t.Run(opName, func(t *testing.T) {
			if err := op(); !IsNotFound(err) {
				t.Errorf("expected not found, got %v", err)
			}
		})
	}
}

func TestDeleteTarget(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.draftTarget(t)
	ctx := context.Background()

	if err := env.engine.DeleteTarget(ctx, tg.ID); err != nil {
		t.Fatalf("DeleteTarget() error: %v", err)
	}
	if _, err := env.engine.GetTarget(ctx, tg.ID); !IsNotFound(err) {
		t.Errorf("expected deleted target to be gone, got %v", err)
	}
}

func TestRegenerateTarget_MovesIDAndKeepsData(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.draftTarget(t)
	ctx := context.Background()
	ingest(t, env, tg.ID, `{"a":1}`)

	resp, err := env.engine.RegenerateTarget(ctx, tg.ID)
	if err != nil {
		t.Fatalf("RegenerateTarget() error: %v", err)
	}
	if resp.OldID != tg.ID || resp.NewID == tg.ID || resp.NewID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if _, err := env.engine.Ingest(ctx, IngestRequest{TargetID: tg.ID}); !IsNotFound(err) {
		t.Errorf("old id should stop accepting events, got %v", err)
	}
	moved := reload(t, env, resp.NewID)
	if len(moved.Payloads) != 1 || moved.Name != tg.Name {
		t.Errorf("regenerated target lost data: %+v", moved)
	}
}

func TestAddManualPayload_SelectsAndRefreshes(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.draftTarget(t)
	ctx := context.Background()
	ingest(t, env, tg.ID, `{"a":1}`)

	p, err := env.engine.AddManualPayload(ctx, tg.ID, domain.AddPayloadRequest{
		Name: "sample",
		Data: json.RawMessage(`{"b":{"c":true}}`),
	})
	if err != nil {
		t.Fatalf("AddManualPayload() error: %v", err)
	}
	if p.Source != domain.SourceManual || p.Name != "sample" {
		t.Errorf("unexpected payload %+v", p)
	}

	got := reload(t, env, tg.ID)
	if got.SelectedPayloadID == nil || *got.SelectedPayloadID != p.ID {
		t.Errorf("manual payload should be selected")
	}
	if len(got.Variables) != 1 || got.Variables[0].Key != "b.c" {
		t.Errorf("variables should follow the new payload, got %+v", got.Variables)
	}
}

func TestAddManualPayload_InvalidJSON(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.draftTarget(t)

	_, err := env.engine.AddManualPayload(context.Background(), tg.ID, domain.AddPayloadRequest{Data: json.RawMessage(`{oops`)})

	if !IsBadInput(err) {
		t.Errorf("expected bad input, got %v", err)
	}
}

func TestDeletePayload_RenormalizesSelection(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.draftTarget(t)
	ctx := context.Background()
	ingest(t, env, tg.ID, `{"first":1}`)
	ingest(t, env, tg.ID, `{"second":1}`)

	before := reload(t, env, tg.ID)
	selected := *before.SelectedPayloadID

	after, err := env.engine.DeletePayload(ctx, tg.ID, selected)
	if err != nil {
		t.Fatalf("DeletePayload() error: %v", err)
	}
	if len(after.Payloads) != 1 {
		t.Fatalf("expected 1 payload left, got %d", len(after.Payloads))
	}
	if after.SelectedPayloadID == nil || *after.SelectedPayloadID != after.Payloads[0].ID {
		t.Error("selection should move to a remaining payload")
	}

	if _, err := env.engine.DeletePayload(ctx, tg.ID, selected); !IsNotFound(err) {
		t.Errorf("expected payload not found, got %v", err)
	}
}

func TestSelectPayload(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.draftTarget(t)
	ctx := context.Background()
	ingest(t, env, tg.ID, `{"first":1}`)
	ingest(t, env, tg.ID, `{"second":1}`)

	all := reload(t, env, tg.ID)
	oldest := all.Payloads[len(all.Payloads)-1].ID

	got, err := env.engine.SelectPayload(ctx, tg.ID, oldest)
	if err != nil {
		t.Fatalf("SelectPayload() error: %v", err)
	}
	if *got.SelectedPayloadID != oldest {
		t.Errorf("expected %s selected, got %s", oldest, *got.SelectedPayloadID)
	}

	if _, err := env.engine.SelectPayload(ctx, tg.ID, "missing"); !IsNotFound(err) {
		t.Errorf("expected payload not found, got %v", err)
	}
}

func TestTestSend(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.activeTarget(t, orderTemplate)
	ctx := context.Background()
	ingest(t, env, tg.ID, orderPayload)

	override := domain.EmailTemplate{To: "ops@example.com", Subject: "Test {{order.id}}", Body: "ok"}
	result, err := env.engine.TestSend(ctx, tg.ID, TestSendRequest{Template: &override})
	if err != nil {
		t.Fatalf("TestSend() error: %v", err)
	}

	if !result.Success || result.MessageID == "" {
		t.Errorf("expected success, got %+v", result)
	}
	if result.Rendered.To != "ops@example.com" || result.Rendered.Subject != "Test 42" {
		t.Errorf("unexpected rendering %+v", result.Rendered)
	}
	if logs := logsFor(t, env, tg.ID); len(logs) != 1 {
		t.Errorf("test sends must not be logged, got %d logs", len(logs))
	}
}

func TestTestSend_ReportsMailerFailure(t *testing.T) {
	env := setupEngine(t, unlimited())
	tg := env.activeTarget(t, orderTemplate)
	ingest(t, env, tg.ID, orderPayload)
	env.mailer.err = errors.New("relay denied")

	result, err := env.engine.TestSend(context.Background(), tg.ID, TestSendRequest{})
	if err != nil {
		t.Fatalf("TestSend() error: %v", err)
	}
	if result.Success || result.Error != "relay denied" {
		t.Errorf("expected reported failure, got %+v", result)
	}
}

func TestTestSend_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, env *testEnv) (string, TestSendRequest)
		wantMsg string
	}{
		{
			name: "no payload",
			prepare: func(t *testing.T, env *testEnv) (string, TestSendRequest) {
				return env.activeTarget(t, orderTemplate).ID, TestSendRequest{}
			},
			wantMsg: "No test data available for this webhook",
		},
		{
			name: "no sender",
			prepare: func(t *testing.T, env *testEnv) (string, TestSendRequest) {
				tg := env.draftTarget(t)
				ingest(t, env, tg.ID, `{}`)
				return tg.ID, TestSendRequest{}
			},
			wantMsg: "Sender not found",
		},
		{
			name: "unknown sender",
			prepare: func(t *testing.T, env *testEnv) (string, TestSendRequest) {
				tg := env.activeTarget(t, orderTemplate)
				ingest(t, env, tg.ID, `{}`)
				return tg.ID, TestSendRequest{SenderID: "ghost"}
			},
			wantMsg: "Sender not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEngine(t, unlimited())
			id, req := tt.prepare(t, env)

			_, err := env.engine.TestSend(context.Background(), id, req)

			if !IsBadInput(err) {
				t.Fatalf("expected bad input, got %v", err)
			}
			if got := ServiceError(err).Message; got != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestLookupSender(t *testing.T) {
	env := setupEngine(t, unlimited())
	env.activeTarget(t, orderTemplate)
	ctx := context.Background()

	s, err := env.engine.LookupSender(ctx, "sender-1")
	if err != nil || s.ID != "sender-1" {
		t.Fatalf("LookupSender() = %+v, %v", s, err)
	}
	if _, err := env.engine.LookupSender(ctx, "ghost"); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", targetNotFound("x"), 404},
		{"bad input", badInput("nope"), 400},
		{"storage", storageFailed(errors.New("db"), "op"), 500},
		{"rate limit", &RateLimitError{Tier: domain.TierBurst}, 429},
		{"plain", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ServiceError(tt.err).Code; got != tt.code {
				t.Errorf("expected %d, got %d", tt.code, got)
			}
		})
	}
}
