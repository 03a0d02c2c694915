package store

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

const (
	settingRateLimits  = "rate_limits"
	settingCORSOrigins = "cors_origins"
)

func (s *PostgresStore) GetSettings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	query, args, err := s.sb.Select("key", "value").
		From("settings").
		Where(sq.Eq{"key": []string{settingRateLimits, settingCORSOrigins}}).
		ToSql()
	if err != nil {
		return settings, fmt.Errorf("building settings query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return settings, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("scanning setting: %w", err)
		}
		switch key {
		case settingRateLimits:
			// Decode over the defaults so fields never written keep them.
			if err := json.Unmarshal(value, &settings.RateLimits); err != nil {
				return settings, fmt.Errorf("decoding %s: %w", key, err)
			}
		case settingCORSOrigins:
			var origins []string
			if err := json.Unmarshal(value, &origins); err != nil {
				return settings, fmt.Errorf("decoding %s: %w", key, err)
			}
			settings.CORSOrigins = origins
		}
	}
	if err := rows.Err(); err != nil {
		return settings, fmt.Errorf("iterating settings: %w", err)
	}
	if settings.CORSOrigins == nil {
		settings.CORSOrigins = []string{}
	}
	return settings, nil
}

func (s *PostgresStore) PutSettings(ctx context.Context, settings domain.Settings) error {
	limits, err := json.Marshal(settings.RateLimits)
	if err != nil {
		return fmt.Errorf("encoding rate limits: %w", err)
	}
	origins := settings.CORSOrigins
	if origins == nil {
		origins = []string{}
	}
	cors, err := json.Marshal(origins)
	if err != nil {
		return fmt.Errorf("encoding cors origins: %w", err)
	}

	query, args, err := s.sb.Insert("settings").
		Columns("key", "value").
		Values(settingRateLimits, limits).
		Values(settingCORSOrigins, cors).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("building settings upsert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting settings: %w", err)
	}
	return nil
}
