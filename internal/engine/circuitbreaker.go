package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Second
)

// SenderBreaker is a per-sender circuit breaker kept in Redis, so an SMTP
// account that keeps failing stops being dialled by every instance.
// State transitions: closed → open → half-open → closed
//
// - Closed: Sends proceed. Failures are counted.
// - Open: Sends are rejected until the cooldown has passed.
// - Half-Open: A probe send is allowed. Success → closed, failure → open.
type SenderBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
	now              func() time.Time
}

// BreakerState is the externally visible state of one sender's circuit.
type BreakerState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

type BreakerOption func(*SenderBreaker)

func WithFailureThreshold(n int) BreakerOption {
	return func(b *SenderBreaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

func WithCooldown(d time.Duration) BreakerOption {
	return func(b *SenderBreaker) {
		if d > 0 {
			b.cooldownPeriod = d
		}
	}
}

func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *SenderBreaker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewSenderBreaker(redisClient *redis.Client, logger *slog.Logger, opts ...BreakerOption) *SenderBreaker {
	b := &SenderBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: DefaultFailureThreshold,
		cooldownPeriod:   DefaultCooldown,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func cbKey(senderID string) string {
	return fmt.Sprintf("cb:sender:%s", senderID)
}

func (b *SenderBreaker) cooledDown(lastFailedAt int64) bool {
	return b.now().Unix()-lastFailedAt >= int64(b.cooldownPeriod.Seconds())
}

// Allow reports the sender's state and whether a send may proceed.
func (b *SenderBreaker) Allow(ctx context.Context, senderID string) (string, bool) {
	key := cbKey(senderID)

	data, err := b.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		b.logger.Error("reading circuit state", "error", err, "sender_id", senderID)
		return StateClosed, true
	}
	if len(data) == 0 {
		return StateClosed, true
	}

	lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)

	switch data["state"] {
	case StateOpen:
		if b.cooledDown(lastFailedAt) {
			b.redisClient.HSet(ctx, key, "state", StateHalfOpen)
			b.logger.Info("circuit breaker half-open", "sender_id", senderID)
			return StateHalfOpen, true
		}
		return StateOpen, false
	case StateHalfOpen:
		return StateHalfOpen, true
	default:
		return StateClosed, true
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *SenderBreaker) RecordSuccess(ctx context.Context, senderID string) {
	key := cbKey(senderID)

	state, _ := b.redisClient.HGet(ctx, key, "state").Result()

	if err := b.redisClient.HSet(ctx, key, "state", StateClosed, "failures", 0).Err(); err != nil {
		b.logger.Error("recording circuit success", "error", err, "sender_id", senderID)
		return
	}

	if state == StateHalfOpen || state == StateOpen {
		b.logger.Info("circuit breaker closed (recovered)", "sender_id", senderID)
	}
}

// RecordFailure counts a failed send and opens the circuit at the threshold,
// or straight away when the failing send was a half-open probe.
func (b *SenderBreaker) RecordFailure(ctx context.Context, senderID string) {
	key := cbKey(senderID)

	var (
		failures *redis.IntCmd
		state    *redis.StringCmd
	)
	_, err := b.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		failures = pipe.HIncrBy(ctx, key, "failures", 1)
		pipe.HSet(ctx, key, "last_failed_at", b.now().Unix())
		state = pipe.HGet(ctx, key, "state")
		return nil
	})
	if err != nil && err != redis.Nil {
		b.logger.Error("recording circuit failure", "error", err, "sender_id", senderID)
		return
	}

	current := state.Val()
	count := failures.Val()

	switch {
	case current == StateHalfOpen:
		b.redisClient.HSet(ctx, key, "state", StateOpen)
		b.logger.Warn("circuit breaker re-opened (half-open probe failed)", "sender_id", senderID)
	case count >= int64(b.failureThreshold):
		b.redisClient.HSet(ctx, key, "state", StateOpen)
		if current != StateOpen {
			b.logger.Warn("circuit breaker opened",
				"sender_id", senderID,
				"failures", count,
				"threshold", b.failureThreshold,
			)
		}
	case current == "":
		b.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// State returns the sender's circuit for display.
func (b *SenderBreaker) State(ctx context.Context, senderID string) BreakerState {
	data, err := b.redisClient.HGetAll(ctx, cbKey(senderID)).Result()
	if err != nil || len(data) == 0 {
		return BreakerState{State: StateClosed}
	}

	failures, _ := strconv.Atoi(data["failures"])
	state := data["state"]
	if state == "" {
		state = StateClosed
	}

	lastFailed, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
	if state == StateOpen && b.cooledDown(lastFailed) {
		state = StateHalfOpen
	}

	result := BreakerState{State: state, Failures: failures}
	if lastFailed > 0 {
		result.LastFailedAt = time.Unix(lastFailed, 0).UTC().Format(time.RFC3339)
	}
	return result
}

// Reset forgets everything about the sender, used when it is edited or removed.
func (b *SenderBreaker) Reset(ctx context.Context, senderID string) {
	if err := b.redisClient.Del(ctx, cbKey(senderID)).Err(); err != nil {
		b.logger.Error("resetting circuit", "error", err, "sender_id", senderID)
	}
}
