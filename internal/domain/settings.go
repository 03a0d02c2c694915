package domain

import "time"

// Tier names one rate-limit tier.
type Tier string

const (
	TierSource Tier = "source"
	TierTarget Tier = "target"
	TierBurst  Tier = "burst"
)

// Message is the client-facing text returned when the tier denies a request.
func (t Tier) Message() string {
	switch t {
	case TierSource:
		return "Too many requests from this IP, please try again later."
	case TierTarget:
		return "Too many requests for this webhook, please try again later."
	case TierBurst:
		return "Burst limit exceeded, please slow down."
	default:
		return "Too many requests, please try again later."
	}
}

const (
	DefaultSourceLimit    = 60
	DefaultSourceWindowMs = 60_000
	DefaultTargetLimit    = 30
	DefaultTargetWindowMs = 60_000
	DefaultBurstLimit     = 5
	DefaultBurstWindowMs  = 1_000
)

// RateConfig holds the limit and window of each tier. A limit or window of
// zero or less falls back to the tier default, so no tier can be switched off.
type RateConfig struct {
	SourceLimit    int   `json:"source_limit"`
	SourceWindowMs int64 `json:"source_window_ms"`
	TargetLimit    int   `json:"target_limit"`
	TargetWindowMs int64 `json:"target_window_ms"`
	BurstLimit     int   `json:"burst_limit"`
	BurstWindowMs  int64 `json:"burst_window_ms"`
}

func DefaultRateConfig() RateConfig {
	return RateConfig{
		SourceLimit:    DefaultSourceLimit,
		SourceWindowMs: DefaultSourceWindowMs,
		TargetLimit:    DefaultTargetLimit,
		TargetWindowMs: DefaultTargetWindowMs,
		BurstLimit:     DefaultBurstLimit,
		BurstWindowMs:  DefaultBurstWindowMs,
	}
}

// Tier returns the limit and window for t.
func (c RateConfig) Tier(t Tier) (int, time.Duration) {
	var (
		limit, limitFallback     int
		windowMs, windowFallback int64
	)
	switch t {
	case TierSource:
		limit, limitFallback = c.SourceLimit, DefaultSourceLimit
		windowMs, windowFallback = c.SourceWindowMs, DefaultSourceWindowMs
	case TierTarget:
		limit, limitFallback = c.TargetLimit, DefaultTargetLimit
		windowMs, windowFallback = c.TargetWindowMs, DefaultTargetWindowMs
	case TierBurst:
		limit, limitFallback = c.BurstLimit, DefaultBurstLimit
		windowMs, windowFallback = c.BurstWindowMs, DefaultBurstWindowMs
	default:
		return 0, 0
	}
	if limit <= 0 {
		limit = limitFallback
	}
	if windowMs <= 0 {
		windowMs = windowFallback
	}
	return limit, time.Duration(windowMs) * time.Millisecond
}

// Effective returns c with every unset limit and window replaced by the
// value Tier enforces.
func (c RateConfig) Effective() RateConfig {
	sl, sw := c.Tier(TierSource)
	tl, tw := c.Tier(TierTarget)
	bl, bw := c.Tier(TierBurst)
	return RateConfig{
		SourceLimit:    sl,
		SourceWindowMs: sw.Milliseconds(),
		TargetLimit:    tl,
		TargetWindowMs: tw.Milliseconds(),
		BurstLimit:     bl,
		BurstWindowMs:  bw.Milliseconds(),
	}
}

// RateConfigPatch is a partial update; unset fields keep their value.
type RateConfigPatch struct {
	SourceLimit    *int   `json:"source_limit,omitempty"`
	SourceWindowMs *int64 `json:"source_window_ms,omitempty"`
	TargetLimit    *int   `json:"target_limit,omitempty"`
	TargetWindowMs *int64 `json:"target_window_ms,omitempty"`
	BurstLimit     *int   `json:"burst_limit,omitempty"`
	BurstWindowMs  *int64 `json:"burst_window_ms,omitempty"`
}

func (c RateConfig) Merge(p RateConfigPatch) RateConfig {
	if p.SourceLimit != nil {
		c.SourceLimit = *p.SourceLimit
	}
	if p.SourceWindowMs != nil {
		c.SourceWindowMs = *p.SourceWindowMs
	}
	if p.TargetLimit != nil {
		c.TargetLimit = *p.TargetLimit
	}
	if p.TargetWindowMs != nil {
		c.TargetWindowMs = *p.TargetWindowMs
	}
	if p.BurstLimit != nil {
		c.BurstLimit = *p.BurstLimit
	}
	if p.BurstWindowMs != nil {
		c.BurstWindowMs = *p.BurstWindowMs
	}
	return c
}

// Settings is the process-wide configuration stored alongside the entities.
type Settings struct {
	RateLimits  RateConfig `json:"rate_limits"`
	CORSOrigins []string   `json:"cors_origins"`
}

func DefaultSettings() Settings {
	return Settings{
		RateLimits:  DefaultRateConfig(),
		CORSOrigins: []string{"*"},
	}
}

// AddOrigin appends origin if it is not already allowed.
func (s *Settings) AddOrigin(origin string) bool {
	for _, o := range s.CORSOrigins {
		if o == origin {
			return false
		}
	}
	s.CORSOrigins = append(s.CORSOrigins, origin)
	return true
}

func (s *Settings) RemoveOrigin(origin string) bool {
	kept := s.CORSOrigins[:0:0]
	for _, o := range s.CORSOrigins {
		if o != origin {
			kept = append(kept, o)
		}
	}
	removed := len(kept) != len(s.CORSOrigins)
	s.CORSOrigins = kept
	return removed
}

type OriginRequest struct {
	Origin string `json:"origin"`
}
