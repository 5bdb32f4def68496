package dataset

import (
	"context"
	"fmt"

	"github.com/openstat/go-wbdata/dcache"
	"github.com/openstat/go-wbdata/wbapi/model"
	"golang.org/x/sync/errgroup"
)

const catalogSignature = "catalog"

// Builder produces the joined dataset for an indicator. Catalog and series
// loads run concurrently and each sits behind its own memoization cache, so
// repeated builds within the cache TTL cost no network calls.
type Builder struct {
	src Source

	catalogCache *dcache.Cache[[]model.Country]
	seriesCache  *dcache.Cache[map[string]LatestObservation]

	startYear int
	endYear   int
}

// NewBuilder creates a Builder that loads from src.
func NewBuilder(src Source, options ...Option) (*Builder, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	cacheOpts := []dcache.Option{dcache.WithTTL(opts.cacheTTL)}
	if opts.clock != nil {
		cacheOpts = append(cacheOpts, dcache.WithClock(opts.clock))
	}
	catalogCache, err := dcache.New[[]model.Country](cacheOpts...)
	if err != nil {
		return nil, err
	}
	seriesCache, err := dcache.New[map[string]LatestObservation](cacheOpts...)
	if err != nil {
		return nil, err
	}

	return &Builder{
		src:          src,
		catalogCache: catalogCache,
		seriesCache:  seriesCache,
		startYear:    opts.startYear,
		endYear:      opts.endYear,
	}, nil
}

// Build returns the joined dataset for indicator: one row per catalog
// country, carrying the latest non-null observation within the builder's
// year range where one exists. A failure in either load aborts the build;
// partial data is never returned.
func (b *Builder) Build(ctx context.Context, indicator string) ([]Row, error) {
	var catalog []model.Country
	var latest map[string]LatestObservation

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = b.catalogCache.GetOrLoad(ctx, catalogSignature, func(ctx context.Context) ([]model.Country, error) {
			return LoadCatalog(ctx, b.src)
		})
		return err
	})
	g.Go(func() error {
		signature := fmt.Sprintf("series/%s/%d:%d", indicator, b.startYear, b.endYear)
		var err error
		latest, err = b.seriesCache.GetOrLoad(ctx, signature, func(ctx context.Context) (map[string]LatestObservation, error) {
			return LoadLatest(ctx, b.src, indicator, b.startYear, b.endYear)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Join(catalog, latest), nil
}

// YearRange returns the year window builds are scoped to.
func (b *Builder) YearRange() (startYear, endYear int) {
	return b.startYear, b.endYear
}

// InvalidateCache drops all memoized payloads. The next Build re-fetches
// both the catalog and the series.
func (b *Builder) InvalidateCache() {
	b.catalogCache.Clear()
	b.seriesCache.Clear()
	log.Infow("Dataset caches invalidated")
}

// CacheStats returns cumulative hit and miss counts summed over both caches.
func (b *Builder) CacheStats() (hits, misses uint64) {
	ch, cm := b.catalogCache.Stats()
	sh, sm := b.seriesCache.Stats()
	return ch + sh, cm + sm
}
