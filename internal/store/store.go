package store

import (
	"context"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

// Lookups return (nil, nil) when the entity does not exist. Deletes report
// whether a row was removed.

type TargetStore interface {
	GetTarget(ctx context.Context, id string) (*domain.Target, error)
	ListTargets(ctx context.Context) ([]domain.Target, error)
	// PutTarget inserts or replaces the target.
	PutTarget(ctx context.Context, t *domain.Target) error
	DeleteTarget(ctx context.Context, id string) (bool, error)
	// RenameTarget moves a target to a new id. Logs keep the old id.
	RenameTarget(ctx context.Context, oldID, newID string) (bool, error)
}

type SenderStore interface {
	GetSender(ctx context.Context, id string) (*domain.Sender, error)
	ListSenders(ctx context.Context) ([]domain.Sender, error)
	PutSender(ctx context.Context, s *domain.Sender) error
	DeleteSender(ctx context.Context, id string) (bool, error)
}

type LogFilter struct {
	TargetID string
	Limit    int
}

type LogStore interface {
	// AppendLog adds entry as the newest log and drops entries beyond limit.
	AppendLog(ctx context.Context, entry domain.LogEntry, limit int) error
	// ListLogs returns entries newest first.
	ListLogs(ctx context.Context, f LogFilter) ([]domain.LogEntry, error)
	DeleteLogsByTarget(ctx context.Context, targetID string) (int, error)
}

type SettingsStore interface {
	// GetSettings returns the defaults for anything never written.
	GetSettings(ctx context.Context) (domain.Settings, error)
	PutSettings(ctx context.Context, s domain.Settings) error
}

type Store interface {
	TargetStore
	SenderStore
	LogStore
	SettingsStore
	Ping(ctx context.Context) error
	Close()
}
