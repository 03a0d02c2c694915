package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

// MemoryStore keeps everything in process. Values are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	targets  map[string]*domain.Target
	senders  map[string]domain.Sender
	logs     []domain.LogEntry // newest first
	settings *domain.Settings
}

var _ Store = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{
		targets: make(map[string]*domain.Target),
		senders: make(map[string]domain.Sender),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() {}

func (m *MemoryStore) GetTarget(_ context.Context, id string) (*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.targets[id].Clone(), nil
}

func (m *MemoryStore) ListTargets(context.Context) ([]domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) PutTarget(_ context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[t.ID] = t.Clone()
	return nil
}

func (m *MemoryStore) DeleteTarget(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return false, nil
	}
	delete(m.targets, id)
	return true, nil
}

func (m *MemoryStore) RenameTarget(_ context.Context, oldID, newID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[oldID]
	if !ok {
		return false, nil
	}
	delete(m.targets, oldID)
	t.ID = newID
	m.targets[newID] = t
	return true, nil
}

func (m *MemoryStore) GetSender(_ context.Context, id string) (*domain.Sender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.senders[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) ListSenders(context.Context) ([]domain.Sender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Sender, 0, len(m.senders))
	for _, s := range m.senders {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) PutSender(_ context.Context, s *domain.Sender) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders[s.ID] = *s
	return nil
}

func (m *MemoryStore) DeleteSender(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.senders[id]; !ok {
		return false, nil
	}
	delete(m.senders, id)
	return true, nil
}

func (m *MemoryStore) AppendLog(_ context.Context, entry domain.LogEntry, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := make([]domain.LogEntry, 0, len(m.logs)+1)
	logs = append(logs, entry)
	logs = append(logs, m.logs...)
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	m.logs = logs
	return nil
}

func (m *MemoryStore) ListLogs(_ context.Context, f LogFilter) ([]domain.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.LogEntry{}
	for _, l := range m.logs {
		if f.TargetID != "" && l.TargetID != f.TargetID {
			continue
		}
		out = append(out, l)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteLogsByTarget(_ context.Context, targetID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]domain.LogEntry, 0, len(m.logs))
	for _, l := range m.logs {
		if l.TargetID != targetID {
			kept = append(kept, l)
		}
	}
	removed := len(m.logs) - len(kept)
	m.logs = kept
	return removed, nil
}

func (m *MemoryStore) GetSettings(context.Context) (domain.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return domain.DefaultSettings(), nil
	}
	s := *m.settings
	s.CORSOrigins = append([]string(nil), m.settings.CORSOrigins...)
	return s, nil
}

func (m *MemoryStore) PutSettings(_ context.Context, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CORSOrigins = append([]string(nil), s.CORSOrigins...)
	m.settings = &s
	return nil
}
