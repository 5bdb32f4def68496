package dataset

import (
	"context"

	"github.com/shopspring/decimal"
)

// LatestObservation is the most recent non-null data point for one country
// within the requested year range.
type LatestObservation struct {
	CountryCode string
	Year        int
	Value       decimal.Decimal
}

// LoadLatest retrieves the raw series for indicator over [startYear, endYear]
// and reduces it to at most one observation per country: the one with the
// greatest year among those with a non-null value. When two observations for
// a country share that year, the one encountered first in source order wins.
// Countries with only null values produce no entry.
func LoadLatest(ctx context.Context, src ObservationSource, indicator string, startYear, endYear int) (map[string]LatestObservation, error) {
	observations, err := src.Observations(ctx, indicator, startYear, endYear)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]LatestObservation)
	for _, obs := range observations {
		if !obs.Value.Valid {
			continue
		}
		// Strictly-greater keeps the first-encountered observation on a tie.
		if current, ok := latest[obs.CountryCode]; ok && obs.Year <= current.Year {
			continue
		}
		latest[obs.CountryCode] = LatestObservation{
			CountryCode: obs.CountryCode,
			Year:        obs.Year,
			Value:       obs.Value.Decimal,
		}
	}

	log.Debugw("Reduced series to latest values", "indicator", indicator, "countries", len(latest), "observations", len(observations))
	return latest, nil
}
