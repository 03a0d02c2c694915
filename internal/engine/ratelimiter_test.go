package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/store"
)

type staticSettings struct {
	cfg domain.RateConfig
	err error
}

func (s *staticSettings) RateConfig(context.Context) (domain.RateConfig, error) {
	return s.cfg, s.err
}

func setupTestRC(t *testing.T, cfg domain.RateConfig) (*RateController, *fakeClock, *staticSettings) {
	t.Helper()
	clock := newFakeClock()
	settings := &staticSettings{cfg: withHeadroom(cfg)}
	rc := NewRateController(settings, NewMemoryCounter(clock.Now), testLogger())
	return rc, clock, settings
}

func setupTestRedisRC(t *testing.T, cfg domain.RateConfig) (*RateController, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rc := NewRateController(&staticSettings{cfg: withHeadroom(cfg)}, NewRedisCounter(client), testLogger())
	return rc, mr
}

func expectTier(t *testing.T, err error, want domain.Tier) {
	t.Helper()
	tier, ok := RateLimitTier(err)
	if !ok {
		t.Fatalf("expected rate-limit error for tier %s, got %v", want, err)
	}
	if tier != want {
		t.Fatalf("expected tier %s, got %s", want, tier)
	}
}

func TestRateController_TargetWindow(t *testing.T) {
	rc, clock, _ := setupTestRC(t, domain.RateConfig{TargetLimit: 2, TargetWindowMs: 60_000})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := rc.Admit(ctx, "10.0.0.1", "T"); err != nil {
			t.Fatalf("request %d should be allowed: %v", i+1, err)
		}
	}
	expectTier(t, rc.Admit(ctx, "10.0.0.1", "T"), domain.TierTarget)

	clock.Advance(60 * time.Second)

	if err := rc.Admit(ctx, "10.0.0.1", "T"); err != nil {
		t.Errorf("request after window should be allowed: %v", err)
	}
}

func TestRateController_SourceDenialSkipsLaterTiers(t *testing.T) {
	rc, _, _ := setupTestRC(t, domain.RateConfig{SourceLimit: 1, TargetLimit: 2})
	ctx := context.Background()

	if err := rc.Admit(ctx, "a", "T"); err != nil {
		t.Fatalf("first request should be allowed: %v", err)
	}
	expectTier(t, rc.Admit(ctx, "a", "T"), domain.TierSource)

	// The denied call must not have counted against the target.
	if err := rc.Admit(ctx, "b", "T"); err != nil {
		t.Errorf("second target hit should be allowed: %v", err)
	}
	expectTier(t, rc.Admit(ctx, "c", "T"), domain.TierTarget)
}

func TestRateController_BurstIsGlobal(t *testing.T) {
	rc, clock, _ := setupTestRC(t, domain.RateConfig{BurstLimit: 2, BurstWindowMs: 1000})
	ctx := context.Background()

	rc.Admit(ctx, "a", "T1")
	rc.Admit(ctx, "b", "T2")
	expectTier(t, rc.Admit(ctx, "c", "T3"), domain.TierBurst)

	clock.Advance(time.Second)
	if err := rc.Admit(ctx, "c", "T3"); err != nil {
		t.Errorf("burst window should have reset: %v", err)
	}
}

func TestRateController_IsolationBetweenTargets(t *testing.T) {
	rc, _, _ := setupTestRC(t, domain.RateConfig{TargetLimit: 1})
	ctx := context.Background()

	rc.Admit(ctx, "a", "T1")
	expectTier(t, rc.Admit(ctx, "a", "T1"), domain.TierTarget)

	if err := rc.Admit(ctx, "a", "T2"); err != nil {
		t.Errorf("T2 should be allowed, limits are per target: %v", err)
	}
}

func TestRateController_ZeroLimitUsesDefault(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.RateConfig
	}{
		{"zero", domain.RateConfig{}},
		{"negative", domain.RateConfig{SourceLimit: -1, TargetLimit: -1, BurstLimit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			clock := newFakeClock()
			rc := NewRateController(&staticSettings{cfg: tt.cfg}, NewMemoryCounter(clock.Now), testLogger())
			for i := 0; i < domain.DefaultBurstLimit; i++ {
				if err := rc.Admit(ctx, "a", "T"); err != nil {
					t.Fatalf("request %d should be allowed: %v", i+1, err)
				}
			}
			expectTier(t, rc.Admit(ctx, "a", "T"), domain.TierBurst)

			// Spread calls over burst windows until the target default trips.
			clock = newFakeClock()
			rc = NewRateController(&staticSettings{cfg: tt.cfg}, NewMemoryCounter(clock.Now), testLogger())
			for i := 0; i < domain.DefaultTargetLimit; i++ {
				if i > 0 && i%domain.DefaultBurstLimit == 0 {
					clock.Advance(time.Second)
				}
				if err := rc.Admit(ctx, "a", "T"); err != nil {
					t.Fatalf("request %d should be allowed: %v", i+1, err)
				}
			}
			clock.Advance(time.Second)
			expectTier(t, rc.Admit(ctx, "a", "T"), domain.TierTarget)
		})
	}
}

func TestRateController_ConfigChangeAppliesOnNextCheck(t *testing.T) {
	rc, _, settings := setupTestRC(t, domain.RateConfig{TargetLimit: 5})
	ctx := context.Background()

	rc.Admit(ctx, "a", "T")
	rc.Admit(ctx, "a", "T")

	settings.cfg.TargetLimit = 2
	expectTier(t, rc.Admit(ctx, "a", "T"), domain.TierTarget)

	settings.cfg.TargetLimit = 10
	if err := rc.Admit(ctx, "a", "T"); err != nil {
		t.Errorf("raised limit should admit: %v", err)
	}
}

func TestRateController_LiveReloadFromStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := domain.DefaultSettings()
	s.RateLimits = withHeadroom(domain.RateConfig{TargetLimit: 3})
	mem.PutSettings(ctx, s)

	cache := NewSettingsCache(mem, 0, nil)
	rc := NewRateController(cache, NewMemoryCounter(nil), testLogger())

	rc.Admit(ctx, "a", "T")
	rc.Admit(ctx, "a", "T")

	if _, err := cache.Update(ctx, func(s *domain.Settings) { s.RateLimits.TargetLimit = 1 }); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	expectTier(t, rc.Admit(ctx, "a", "T"), domain.TierTarget)
}

func TestRateController_SettingsErrorUsesDefaults(t *testing.T) {
	clock := newFakeClock()
	settings := &staticSettings{err: errors.New("db down")}
	rc := NewRateController(settings, NewMemoryCounter(clock.Now), testLogger())
	ctx := context.Background()

	for i := 0; i < domain.DefaultBurstLimit; i++ {
		if err := rc.Admit(ctx, "a", "T"); err != nil {
			t.Fatalf("request %d should be allowed: %v", i+1, err)
		}
	}
	expectTier(t, rc.Admit(ctx, "a", "T"), domain.TierBurst)
}

func TestRateController_CounterErrorFailsOpen(t *testing.T) {
	rc := NewRateController(&staticSettings{cfg: domain.RateConfig{TargetLimit: 1}}, errCounter{}, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := rc.Admit(ctx, "a", "T"); err != nil {
			t.Fatalf("counter failure should fail open: %v", err)
		}
	}
}

func TestRateController_Redis_TargetWindow(t *testing.T) {
	rc, mr := setupTestRedisRC(t, domain.RateConfig{TargetLimit: 2, TargetWindowMs: 60_000})
	ctx := context.Background()

	rc.Admit(ctx, "a", "T")
	rc.Admit(ctx, "a", "T")
	expectTier(t, rc.Admit(ctx, "a", "T"), domain.TierTarget)

	if ttl := mr.TTL(rlKey(domain.TierTarget, "T")); ttl <= 0 || ttl > 60*time.Second {
		t.Errorf("expected window TTL within 60s, got %v", ttl)
	}

	mr.FastForward(60 * time.Second)

	if err := rc.Admit(ctx, "a", "T"); err != nil {
		t.Errorf("request after window should be allowed: %v", err)
	}
}

func TestRateController_Redis_FailsOpen(t *testing.T) {
	rc, mr := setupTestRedisRC(t, domain.RateConfig{TargetLimit: 1})
	ctx := context.Background()

	mr.Close()

	for i := 0; i < 3; i++ {
		if err := rc.Admit(ctx, "a", "T"); err != nil {
			t.Fatalf("redis outage should fail open: %v", err)
		}
	}
}

func TestMemoryCounter_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCounter(clock.Now)
	ctx := context.Background()

	c.Incr(ctx, "short", time.Second)
	c.Incr(ctx, "long", time.Minute)

	clock.Advance(2 * time.Second)
	if removed := c.Sweep(); removed != 1 {
		t.Errorf("expected 1 expired window, got %d", removed)
	}

	n, _ := c.Incr(ctx, "long", time.Minute)
	if n != 2 {
		t.Errorf("live window lost its count: %d", n)
	}
}

func TestRateLimitError_ToServiceError(t *testing.T) {
	err := &RateLimitError{Tier: domain.TierSource, Limit: 60, Window: time.Minute}
	mapped := err.ToServiceError()

	if mapped.Code != 429 {
		t.Errorf("expected 429, got %d", mapped.Code)
	}
	if mapped.TextCode != TextCodeRateLimited {
		t.Errorf("expected %s, got %s", TextCodeRateLimited, mapped.TextCode)
	}
	if err.Error() != "Too many requests from this IP, please try again later." {
		t.Errorf("unexpected message %q", err.Error())
	}
}
