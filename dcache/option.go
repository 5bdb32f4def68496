package dcache

import (
	"fmt"
	"time"
)

// defaultTTL matches the daily publication cadence of statistical sources;
// payloads rarely change more often than once a day.
const defaultTTL = 24 * time.Hour

type config struct {
	ttl time.Duration
	now func() time.Time
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		ttl: defaultTTL,
		now: time.Now,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithTTL sets how long a stored payload remains valid. A lookup made within
// the TTL returns the stored payload without invoking the loader.
//
// Default is 24 hours.
func WithTTL(ttl time.Duration) Option {
	return func(cfg *config) error {
		if ttl <= 0 {
			return fmt.Errorf("ttl must be positive: %s", ttl)
		}
		cfg.ttl = ttl
		return nil
	}
}

// WithClock sets the time source used for expiry checks. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) error {
		if now != nil {
			cfg.now = now
		}
		return nil
	}
}
