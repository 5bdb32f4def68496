// Command wbdata serves joined statistics datasets over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/openstat/go-wbdata/api"
	"github.com/openstat/go-wbdata/dataset"
	"github.com/openstat/go-wbdata/store/sqlite"
	"github.com/openstat/go-wbdata/wbapi/client"
	"github.com/prometheus/client_golang/prometheus"
)

var log = logging.Logger("wbdata")

type config struct {
	Listen      string        `env:"WBDATA_LISTEN" envDefault:":8080"`
	BaseURL     string        `env:"WBDATA_API_URL" envDefault:"https://api.worldbank.org/v2"`
	CacheTTL    time.Duration `env:"WBDATA_CACHE_TTL" envDefault:"24h"`
	StartYear   int           `env:"WBDATA_START_YEAR" envDefault:"2010"`
	EndYear     int           `env:"WBDATA_END_YEAR" envDefault:"2028"`
	DBPath      string        `env:"WBDATA_DB" envDefault:"wbdata.db"`
	HTTPTimeout time.Duration `env:"WBDATA_HTTP_TIMEOUT" envDefault:"3m"`
	RetryMax    int           `env:"WBDATA_HTTP_RETRY_MAX" envDefault:"3"`
	LogLevel    string        `env:"WBDATA_LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := run(); err != nil {
		log.Fatalw("Exiting with error", "err", err)
	}
}

func run() error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return err
	}
	if err := logging.SetLogLevel("*", cfg.LogLevel); err != nil {
		return err
	}

	c, err := client.New(cfg.BaseURL,
		client.WithClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		client.WithRetry(cfg.RetryMax, 0, 0))
	if err != nil {
		return err
	}

	builder, err := dataset.NewBuilder(c,
		dataset.WithYearRange(cfg.StartYear, cfg.EndYear),
		dataset.WithCacheTTL(cfg.CacheTTL))
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}

	metrics := api.NewMetrics(prometheus.DefaultRegisterer, builder.CacheStats)
	handler := api.NewHandler(builder, store, metrics)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: api.NewRouter(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Listening", "addr", cfg.Listen, "api", cfg.BaseURL)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infow("Shutting down", "signal", sig.String())
	case err = <-errCh:
		store.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var result *multierror.Error
	if err = server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if err = <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		result = multierror.Append(result, err)
	}
	if err = store.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
