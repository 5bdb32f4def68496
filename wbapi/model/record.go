package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/openstat/go-wbdata/apierror"
	"github.com/shopspring/decimal"
)

// Country is a reference record for a single reporting entity. Records whose
// region is an aggregate grouping (world, income bands, regions) carry the
// reserved region id handled by the dataset layer; they are parsed here like
// any other record.
type Country struct {
	// Code is the stable ISO3 identifier, unique within the catalog.
	Code string
	// Name is the display name.
	Name string
	// RegionID is the classification code of the country's region.
	RegionID string
	// RegionName is the human-readable region classification.
	RegionName string
	// IncomeLevel is the income tier classification.
	IncomeLevel string
}

// Observation is a single (country, year, value) data point from an indicator
// time series. Value is null when the source reports no measurement for that
// year.
type Observation struct {
	CountryCode string
	Year        int
	Value       decimal.NullDecimal
}

// pageMeta is the first element of a page envelope. Only the total record
// count is consumed; the rest of the metadata is advisory.
type pageMeta struct {
	Total int `json:"total"`
}

type countryRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"region"`
	IncomeLevel struct {
		Value string `json:"value"`
	} `json:"incomeLevel"`
}

type observationRecord struct {
	CountryISO3 string              `json:"countryiso3code"`
	Date        string              `json:"date"`
	Value       decimal.NullDecimal `json:"value"`
}

// UnmarshalPage decodes a paginated response envelope, a two-element JSON
// array of [metadata, records]. The returned bool is false when the body is
// valid JSON but does not have the envelope shape, which the upstream API
// uses to signal that no more data is available. Unparseable JSON is a
// malformed-response error.
func UnmarshalPage(data []byte) (int, []json.RawMessage, bool, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return 0, nil, false, apierror.New(apierror.KindMalformed, fmt.Errorf("cannot decode page envelope: %w", err), 0)
	}
	if len(envelope) < 2 {
		// End-of-data signal, not an error.
		return 0, nil, false, nil
	}

	var meta pageMeta
	if err := json.Unmarshal(envelope[0], &meta); err != nil {
		return 0, nil, false, apierror.New(apierror.KindMalformed, fmt.Errorf("cannot decode page metadata: %w", err), 0)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(envelope[1], &records); err != nil {
		return 0, nil, false, apierror.New(apierror.KindMalformed, fmt.Errorf("cannot decode page records: %w", err), 0)
	}

	return meta.Total, records, true, nil
}

// UnmarshalCountry decodes a single country reference record. A record
// without an id is a malformed-response error; the id is the join key for
// everything downstream and cannot be defaulted.
func UnmarshalCountry(data []byte) (Country, error) {
	var rec countryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Country{}, apierror.New(apierror.KindMalformed, fmt.Errorf("cannot decode country record: %w", err), 0)
	}
	if rec.ID == "" {
		return Country{}, apierror.New(apierror.KindMalformed, errors.New("country record has no id"), 0)
	}
	return Country{
		Code:        rec.ID,
		Name:        rec.Name,
		RegionID:    rec.Region.ID,
		RegionName:  rec.Region.Value,
		IncomeLevel: rec.IncomeLevel.Value,
	}, nil
}

// UnmarshalObservation decodes a single time-series record. The returned bool
// is false when the record should be discarded: the source emits rows without
// a country code for some aggregates, and rows without a date are unusable
// for latest-value reduction. A non-empty date that is not a year is a
// malformed-response error.
func UnmarshalObservation(data []byte) (Observation, bool, error) {
	var rec observationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Observation{}, false, apierror.New(apierror.KindMalformed, fmt.Errorf("cannot decode observation record: %w", err), 0)
	}
	if rec.CountryISO3 == "" || rec.Date == "" {
		return Observation{}, false, nil
	}
	year, err := strconv.Atoi(rec.Date)
	if err != nil {
		return Observation{}, false, apierror.New(apierror.KindMalformed, fmt.Errorf("observation date %q is not a year", rec.Date), 0)
	}
	return Observation{
		CountryCode: rec.CountryISO3,
		Year:        year,
		Value:       rec.Value,
	}, true, nil
}
