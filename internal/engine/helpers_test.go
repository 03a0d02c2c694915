package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []domain.Message
	senders []string
	err     error
	block   bool
}

func (m *fakeMailer) Send(ctx context.Context, sender domain.Sender, msg domain.Message) (string, error) {
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	m.senders = append(m.senders, sender.ID)
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("<msg-%d@test>", len(m.sent)), nil
}

func (m *fakeMailer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakePublisher struct {
	name    string
	err     error
	mu      sync.Mutex
	entries []domain.LogEntry
}

func (p *fakePublisher) Name() string { return p.name }

func (p *fakePublisher) Publish(_ context.Context, e domain.LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, e)
	return p.err
}

// countingCounter wraps a CounterStore and records every key it sees.
type countingCounter struct {
	CounterStore
	mu   sync.Mutex
	keys []string
}

func (c *countingCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	return c.CounterStore.Incr(ctx, key, window)
}

func (c *countingCounter) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

type errCounter struct{}

func (errCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("counter unavailable")
}

// flakyStore fails selected writes.
type flakyStore struct {
	*store.MemoryStore
	putErr    error
	appendErr error
}

func (f *flakyStore) PutTarget(ctx context.Context, t *domain.Target) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryStore.PutTarget(ctx, t)
}

func (f *flakyStore) AppendLog(ctx context.Context, e domain.LogEntry, limit int) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.MemoryStore.AppendLog(ctx, e, limit)
}

// noLimit is a limit no test comes close to.
const noLimit = 1_000_000

// withHeadroom raises every limit left unset in cfg to noLimit, so a test
// only meets the tiers it configures.
func withHeadroom(cfg domain.RateConfig) domain.RateConfig {
	for _, l := range []*int{&cfg.SourceLimit, &cfg.TargetLimit, &cfg.BurstLimit} {
		if *l <= 0 {
			*l = noLimit
		}
	}
	return cfg
}

func unlimited() domain.RateConfig {
	return withHeadroom(domain.RateConfig{})
}

type testEnv struct {
	engine   *Engine
	store    *flakyStore
	mailer   *fakeMailer
	clock    *fakeClock
	counter  *countingCounter
	settings *SettingsCache
}

type envOption func(*Deps)

func setupEngine(t *testing.T, limits domain.RateConfig, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	st := &flakyStore{MemoryStore: mem}
	settings := domain.DefaultSettings()
	settings.RateLimits = withHeadroom(limits)
	if err := mem.PutSettings(ctx, settings); err != nil {
		t.Fatalf("PutSettings() error: %v", err)
	}

	clock := newFakeClock()
	cache := NewSettingsCache(mem, 0, clock.Now)
	counter := &countingCounter{CounterStore: NewMemoryCounter(clock.Now)}
	mailer := &fakeMailer{}
	logger := testLogger()

	deps := Deps{
		Targets: st,
		Senders: st,
		Logs:    st,
		Limiter: NewRateController(cache, counter, logger),
		Mailer:  mailer,
		Logger:  logger,
		Now:     clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		engine:   NewEngine(deps),
		store:    st,
		mailer:   mailer,
		clock:    clock,
		counter:  counter,
		settings: cache,
	}
}

// activeTarget creates an active target wired to a stored sender.
func (env *testEnv) activeTarget(t *testing.T, tmpl domain.EmailTemplate) *domain.Target {
	t.Helper()
	ctx := context.Background()

	sender := &domain.Sender{ID: "sender-1", Host: "smtp.example.com", Port: 587, FromEmail: "noreply@example.com"}
	if err := env.store.PutSender(ctx, sender); err != nil {
		t.Fatalf("PutSender() error: %v", err)
	}

	tg, err := env.engine.CreateTarget(ctx, domain.CreateTargetRequest{Name: "orders"})
	if err != nil {
		t.Fatalf("CreateTarget() error: %v", err)
	}
	active := domain.StatusActive
	senderID := sender.ID
	tg, err = env.engine.UpdateTarget(ctx, tg.ID, domain.UpdateTargetRequest{
		Status:   &active,
		Template: &tmpl,
		SenderID: &senderID,
	})
	if err != nil {
		t.Fatalf("UpdateTarget() error: %v", err)
	}
	return tg
}

func (env *testEnv) draftTarget(t *testing.T) *domain.Target {
	t.Helper()
	tg, err := env.engine.CreateTarget(context.Background(), domain.CreateTargetRequest{Name: "draft"})
	if err != nil {
		t.Fatalf("CreateTarget() error: %v", err)
	}
	return tg
}
