package engine

import (
	"context"
	"testing"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCreateSender_Validates(t *testing.T) {
	env := setupEngine(t, unlimited())

	_, err := env.engine.CreateSender(context.Background(), domain.SenderRequest{Host: strPtr("smtp.example.com")})
	if !IsBadInput(err) {
		t.Errorf("expected bad input without from_email, got %v", err)
	}

	s, err := env.engine.CreateSender(context.Background(), domain.SenderRequest{
		Host:      strPtr("smtp.example.com"),
		FromEmail: strPtr("noreply@example.com"),
		Secret:    strPtr("hunter2"),
	})
	if err != nil {
		t.Fatalf("CreateSender() error: %v", err)
	}
	if s.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestUpdateSender_KeepsSecretWhenRedacted(t *testing.T) {
	env := setupEngine(t, unlimited())
	ctx := context.Background()
	s, err := env.engine.CreateSender(ctx, domain.SenderRequest{
		Host:      strPtr("smtp.example.com"),
		FromEmail: strPtr("noreply@example.com"),
		Secret:    strPtr("hunter2"),
	})
	if err != nil {
		t.Fatalf("CreateSender() error: %v", err)
	}

	updated, err := env.engine.UpdateSender(ctx, s.ID, domain.SenderRequest{
		FromName: strPtr("Alerts"),
		Secret:   strPtr(domain.RedactedSecret),
	})
	if err != nil {
		t.Fatalf("UpdateSender() error: %v", err)
	}
	if updated.Secret != "hunter2" || updated.FromName != "Alerts" {
		t.Errorf("unexpected sender after update: %+v", updated)
	}

	if _, err := env.engine.UpdateSender(ctx, "ghost", domain.SenderRequest{}); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteSender(t *testing.T) {
	env := setupEngine(t, unlimited())
	env.activeTarget(t, orderTemplate)
	ctx := context.Background()

	if err := env.engine.DeleteSender(ctx, "sender-1"); err != nil {
		t.Fatalf("DeleteSender() error: %v", err)
	}
	if err := env.engine.DeleteSender(ctx, "sender-1"); !IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	env := setupEngine(t, unlimited())
	active := env.activeTarget(t, orderTemplate)
	draft := env.draftTarget(t)

	for i := 0; i < 12; i++ {
		ingest(t, env, draft.ID, `{}`)
	}
	ingest(t, env, active.ID, orderPayload)

	d, err := env.engine.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error: %v", err)
	}
	if d.TotalTargets != 2 || d.ActiveTargets != 1 || d.TotalSenders != 1 {
		t.Errorf("unexpected totals %+v", d)
	}
	if len(d.RecentLogs) != 10 {
		t.Fatalf("expected 10 recent logs, got %d", len(d.RecentLogs))
	}
	if d.RecentLogs[0].TargetID != active.ID {
		t.Error("most recent log should come first")
	}
}

func TestClearTargetLogs(t *testing.T) {
	env := setupEngine(t, unlimited())
	a := env.draftTarget(t)
	b := env.draftTarget(t)
	ingest(t, env, a.ID, `{}`)
	ingest(t, env, a.ID, `{}`)
	ingest(t, env, b.ID, `{}`)
	ctx := context.Background()

	n, err := env.engine.ClearTargetLogs(ctx, a.ID)
	if err != nil || n != 2 {
		t.Fatalf("ClearTargetLogs() = %d, %v", n, err)
	}
	all, _ := env.engine.ListLogs(ctx, "", 0)
	if len(all) != 1 || all[0].TargetID != b.ID {
		t.Errorf("only b's log should remain, got %+v", all)
	}
}
