package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string // empty selects the in-memory store
	RedisURL    string // empty selects in-memory rate counters and no breaker

	KafkaBrokers []string
	KafkaTopic   string

	PublicHost string
	// TrustedProxies are the peers whose forwarding headers name the caller.
	// Calls from anyone else are keyed by their own address.
	TrustedProxies []netip.Prefix

	MailTimeout       time.Duration
	MailWorkers       int
	IngestConcurrency int
	SettingsTTL       time.Duration

	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		KafkaBrokers:      getEnvList("KAFKA_BROKERS"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "notifier.logs"),
		PublicHost:        strings.TrimRight(getEnv("PUBLIC_HOST", "http://localhost:8080"), "/"),
		MailTimeout:       getEnvDuration("MAIL_TIMEOUT", 30*time.Second),
		MailWorkers:       getEnvInt("MAIL_WORKERS", 8),
		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 100),
		SettingsTTL:       getEnvDuration("SETTINGS_TTL", time.Second),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	proxies, err := parsePrefixes(getEnvList("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	if cfg.MailWorkers <= 0 {
		return nil, fmt.Errorf("MAIL_WORKERS must be positive, got %d", cfg.MailWorkers)
	}
	if cfg.IngestConcurrency <= 0 {
		return nil, fmt.Errorf("INGEST_CONCURRENCY must be positive, got %d", cfg.IngestConcurrency)
	}
	if cfg.MailTimeout <= 0 {
		return nil, fmt.Errorf("MAIL_TIMEOUT must be positive, got %s", cfg.MailTimeout)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parsePrefixes accepts plain addresses as single-host prefixes.
func parsePrefixes(items []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(items))
	for _, item := range items {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", item, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
