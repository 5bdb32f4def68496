package dataset

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"github.com/openstat/go-wbdata/wbapi/model"
)

var log = logging.Logger("dataset")

// AggregateRegionID is the reserved region code the source uses for records
// that are aggregate groupings (world, income bands, regions) rather than
// countries. Such records never appear in a loaded catalog.
const AggregateRegionID = "NA"

// CountrySource retrieves the complete, unfiltered country reference
// collection.
type CountrySource interface {
	Countries(ctx context.Context) ([]model.Country, error)
}

// ObservationSource retrieves the raw time series for one indicator over a
// year range.
type ObservationSource interface {
	Observations(ctx context.Context, indicator string, startYear, endYear int) ([]model.Observation, error)
}

// Source retrieves both reference and time-series data. *client.Client
// satisfies it.
type Source interface {
	CountrySource
	ObservationSource
}

// LoadCatalog retrieves the country catalog and drops aggregate placeholder
// records. The result has no duplicate codes: if the source ever repeats a
// code, the last record seen wins, keeping catalog order of first appearance.
func LoadCatalog(ctx context.Context, src CountrySource) ([]model.Country, error) {
	all, err := src.Countries(ctx)
	if err != nil {
		return nil, err
	}

	catalog := make([]model.Country, 0, len(all))
	index := make(map[string]int, len(all))
	for _, country := range all {
		if country.RegionID == AggregateRegionID {
			continue
		}
		if at, ok := index[country.Code]; ok {
			catalog[at] = country
			continue
		}
		index[country.Code] = len(catalog)
		catalog = append(catalog, country)
	}

	log.Debugw("Loaded country catalog", "countries", len(catalog), "aggregates", len(all)-len(catalog))
	return catalog, nil
}
