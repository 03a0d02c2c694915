package engine

import (
	"context"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/store"
)

func (e *Engine) ListSenders(ctx context.Context) ([]domain.Sender, error) {
	senders, err := e.senders.ListSenders(ctx)
	if err != nil {
		return nil, storageFailed(err, "listing senders")
	}
	return senders, nil
}

func (e *Engine) CreateSender(ctx context.Context, req domain.SenderRequest) (*domain.Sender, error) {
	s := &domain.Sender{ID: domain.NewSenderID()}
	req.Apply(s)
	if err := s.Validate(); err != nil {
		return nil, badInput(err.Error())
	}
	if err := e.senders.PutSender(ctx, s); err != nil {
		return nil, storageFailed(err, "saving sender")
	}
	e.logger.Info("sender created", "sender_id", s.ID, "host", s.Host)
	return s, nil
}

// UpdateSender merges req into the stored sender and clears its circuit, so
// corrected credentials are tried straight away.
func (e *Engine) UpdateSender(ctx context.Context, id string, req domain.SenderRequest) (*domain.Sender, error) {
	s, err := e.LookupSender(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(s)
	if err := s.Validate(); err != nil {
		return nil, badInput(err.Error())
	}
	if err := e.senders.PutSender(ctx, s); err != nil {
		return nil, storageFailed(err, "saving sender")
	}
	e.ResetSender(ctx, id)
	return s, nil
}

func (e *Engine) DeleteSender(ctx context.Context, id string) error {
	ok, err := e.senders.DeleteSender(ctx, id)
	if err != nil {
		return storageFailed(err, "deleting sender")
	}
	if !ok {
		return senderNotFound(id)
	}
	e.ResetSender(ctx, id)
	e.logger.Info("sender deleted", "sender_id", id)
	return nil
}

// ListLogs returns log entries newest first, optionally for one target.
func (e *Engine) ListLogs(ctx context.Context, targetID string, limit int) ([]domain.LogEntry, error) {
	logs, err := e.logs.ListLogs(ctx, store.LogFilter{TargetID: targetID, Limit: limit})
	if err != nil {
		return nil, storageFailed(err, "listing logs")
	}
	return logs, nil
}

func (e *Engine) ClearTargetLogs(ctx context.Context, targetID string) (int, error) {
	n, err := e.logs.DeleteLogsByTarget(ctx, targetID)
	if err != nil {
		return 0, storageFailed(err, "deleting logs")
	}
	return n, nil
}

const dashboardRecentLogs = 10

func (e *Engine) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	targets, err := e.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	senders, err := e.ListSenders(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := e.ListLogs(ctx, "", dashboardRecentLogs)
	if err != nil {
		return nil, err
	}

	d := &domain.Dashboard{
		TotalTargets: len(targets),
		TotalSenders: len(senders),
		RecentLogs:   logs,
	}
	for _, t := range targets {
		if t.Status == domain.StatusActive {
			d.ActiveTargets++
		}
	}
	return d, nil
}
