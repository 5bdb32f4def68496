package client

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// defaultCountryPerPage is sized so the full country catalog fits in one
	// or two pages.
	defaultCountryPerPage = 300
	// defaultSeriesPerPage is sized so a multi-year indicator series for all
	// countries usually fits in a single page.
	defaultSeriesPerPage = 20000
	// defaultMaxPages bounds pagination when the declared total is wrong.
	defaultMaxPages = 64

	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 30 * time.Second
)

type config struct {
	httpClient     *http.Client
	countryPerPage int
	seriesPerPage  int
	maxPages       int
	retryMax       int
	retryWaitMin   time.Duration
	retryWaitMax   time.Duration
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		httpClient:     http.DefaultClient,
		countryPerPage: defaultCountryPerPage,
		seriesPerPage:  defaultSeriesPerPage,
		maxPages:       defaultMaxPages,
		retryWaitMin:   defaultRetryWaitMin,
		retryWaitMax:   defaultRetryWaitMax,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClient allows creation of the http client using an underlying network
// round tripper / client.
func WithClient(c *http.Client) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.httpClient = c
		}
		return nil
	}
}

// WithCountryPageSize sets the per_page parameter used when retrieving the
// country reference collection.
func WithCountryPageSize(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("country page size must be positive: %d", n)
		}
		cfg.countryPerPage = n
		return nil
	}
}

// WithSeriesPageSize sets the per_page parameter used when retrieving an
// indicator time series.
func WithSeriesPageSize(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("series page size must be positive: %d", n)
		}
		cfg.seriesPerPage = n
		return nil
	}
}

// WithMaxPages sets the hard ceiling on pages retrieved per collection. The
// ceiling stops pagination from running away when the server misreports the
// total record count.
//
// Default is 64.
func WithMaxPages(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("max pages must be positive: %d", n)
		}
		cfg.maxPages = n
		return nil
	}
}

// WithRetry configures transport-level retries with exponential backoff. If
// retryMax is 0 then requests are not retried.
//
// Default is no retries.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(cfg *config) error {
		if retryMax < 0 {
			return fmt.Errorf("retry max must not be negative: %d", retryMax)
		}
		cfg.retryMax = retryMax
		if waitMin != 0 {
			cfg.retryWaitMin = waitMin
		}
		if waitMax != 0 {
			cfg.retryWaitMax = waitMax
		}
		return nil
	}
}
