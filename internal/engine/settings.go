package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/store"
)

// SettingsCache reads settings through to the store, keeping a copy for at
// most ttl. A zero ttl reads the store on every call.
type SettingsCache struct {
	store store.SettingsStore
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	cached   domain.Settings
	loadedAt time.Time
	valid    bool
}

func NewSettingsCache(st store.SettingsStore, ttl time.Duration, now func() time.Time) *SettingsCache {
	if now == nil {
		now = time.Now
	}
	return &SettingsCache{store: st, ttl: ttl, now: now}
}

func (c *SettingsCache) Settings(ctx context.Context) (domain.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *SettingsCache) RateConfig(ctx context.Context) (domain.RateConfig, error) {
	s, err := c.Settings(ctx)
	if err != nil {
		return domain.RateConfig{}, err
	}
	return s.RateLimits, nil
}

// Update applies fn to the current settings and persists the result.
func (c *SettingsCache) Update(ctx context.Context, fn func(*domain.Settings)) (domain.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	s, err := c.loadLocked(ctx)
	if err != nil {
		return s, err
	}
	s.CORSOrigins = append([]string(nil), s.CORSOrigins...)
	fn(&s)

	if err := c.store.PutSettings(ctx, s); err != nil {
		return s, storageFailed(err, "saving settings")
	}
	c.cached, c.loadedAt, c.valid = s, c.now(), true
	return s, nil
}

func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

func (c *SettingsCache) loadLocked(ctx context.Context) (domain.Settings, error) {
	if c.valid && c.ttl > 0 && c.now().Sub(c.loadedAt) < c.ttl {
		return c.cached, nil
	}
	s, err := c.store.GetSettings(ctx)
	if err != nil {
		return domain.DefaultSettings(), fmt.Errorf("loading settings: %w", err)
	}
	c.cached, c.loadedAt, c.valid = s, c.now(), true
	return s, nil
}

// Origins returns the allowed CORS origins, or the defaults with an error
// when settings cannot be read.
func (c *SettingsCache) Origins(ctx context.Context) ([]string, error) {
	s, err := c.Settings(ctx)
	return s.CORSOrigins, err
}

// OriginAllowed reports whether a browser origin passes the CORS list.
func (c *SettingsCache) OriginAllowed(ctx context.Context, origin string) bool {
	origins, _ := c.Origins(ctx)
	return slices.Contains(origins, "*") || slices.Contains(origins, origin)
}
