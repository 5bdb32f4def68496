package dataset

import (
	"fmt"
	"time"
)

const (
	// Default year window. The upper bound sits past the current year so
	// projected values published by the source are picked up.
	defaultStartYear = 2010
	defaultEndYear   = 2028

	defaultCacheTTL = 24 * time.Hour
)

type config struct {
	startYear int
	endYear   int
	cacheTTL  time.Duration
	clock     func() time.Time
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		startYear: defaultStartYear,
		endYear:   defaultEndYear,
		cacheTTL:  defaultCacheTTL,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithYearRange sets the year window series loads are scoped to.
//
// Default is 2010 through 2028.
func WithYearRange(startYear, endYear int) Option {
	return func(cfg *config) error {
		if startYear > endYear {
			return fmt.Errorf("start year %d is after end year %d", startYear, endYear)
		}
		cfg.startYear = startYear
		cfg.endYear = endYear
		return nil
	}
}

// WithCacheTTL sets how long loaded payloads are memoized before a build
// re-fetches them.
//
// Default is 24 hours.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cfg *config) error {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl must be positive: %s", ttl)
		}
		cfg.cacheTTL = ttl
		return nil
	}
}

// WithClock sets the time source used for cache expiry. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) error {
		cfg.clock = now
		return nil
	}
}
