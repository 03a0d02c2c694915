package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

// burstKey is the single counter shared by every request in the burst tier.
const burstKey = "global"

// SettingsProvider supplies the live rate configuration.
type SettingsProvider interface {
	RateConfig(ctx context.Context) (domain.RateConfig, error)
}

// CounterStore counts hits in fixed windows. Incr adds one hit to key and
// returns the new count; a key's window opens at its first hit.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateController admits inbound webhook calls through three fixed-window
// tiers: per source address, per target and a global burst tier.
type RateController struct {
	settings SettingsProvider
	counters CounterStore
	logger   *slog.Logger
}

func NewRateController(settings SettingsProvider, counters CounterStore, logger *slog.Logger) *RateController {
	return &RateController{
		settings: settings,
		counters: counters,
		logger:   logger,
	}
}

func rlKey(tier domain.Tier, key string) string {
	return fmt.Sprintf("rl:%s:%s", tier, key)
}

// Admit counts the request against each tier in order and returns a
// *RateLimitError for the first tier whose limit is exceeded. Tiers after a
// denial are not counted.
func (rc *RateController) Admit(ctx context.Context, sourceAddr, targetID string) error {
	cfg, err := rc.settings.RateConfig(ctx)
	if err != nil {
		rc.logger.Error("loading rate config, using defaults", "error", err)
		cfg = domain.DefaultRateConfig()
	}
	if sourceAddr == "" {
		sourceAddr = "unknown"
	}

	checks := []struct {
		tier domain.Tier
		key  string
	}{
		{domain.TierSource, sourceAddr},
		{domain.TierTarget, targetID},
		{domain.TierBurst, burstKey},
	}

	for _, c := range checks {
		limit, window := cfg.Tier(c.tier)
		count, err := rc.counters.Incr(ctx, rlKey(c.tier, c.key), window)
		if err != nil {
			rc.logger.Error("rate counter failed", "error", err, "tier", c.tier)
			continue // Fail open
		}

		if count > int64(limit) {
			rc.logger.Debug("rate limited",
				"tier", c.tier,
				"key", c.key,
				"limit", limit,
				"count", count,
			)
			return &RateLimitError{Tier: c.tier, Limit: limit, Window: window}
		}
	}

	return nil
}
