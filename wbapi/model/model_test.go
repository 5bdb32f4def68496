package model_test

import (
	"testing"

	"github.com/openstat/go-wbdata/apierror"
	"github.com/openstat/go-wbdata/wbapi/model"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPage(t *testing.T) {
	body := []byte(`[{"page":1,"pages":2,"per_page":"2","total":3},[{"id":"A"},{"id":"B"}]]`)
	total, records, ok, err := model.UnmarshalPage(body)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, total)
	require.Len(t, records, 2)
}

func TestUnmarshalPageExhaustion(t *testing.T) {
	// A single-element array is the end-of-data signal, not an error.
	_, _, ok, err := model.UnmarshalPage([]byte(`[{"message":"no data"}]`))
	require.NoError(t, err)
	require.False(t, ok)

	_, _, ok, err = model.UnmarshalPage([]byte(`[]`))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUnmarshalPageMalformed(t *testing.T) {
	_, _, _, err := model.UnmarshalPage([]byte(`{"not":"an array"}`))
	require.Error(t, err)
	require.Equal(t, apierror.KindMalformed, apierror.KindOf(err))

	_, _, _, err = model.UnmarshalPage([]byte(`[[],"not records"]`))
	require.Error(t, err)
	require.Equal(t, apierror.KindMalformed, apierror.KindOf(err))

	_, _, _, err = model.UnmarshalPage([]byte(`not json`))
	require.Error(t, err)
	require.Equal(t, apierror.KindMalformed, apierror.KindOf(err))
}

func TestUnmarshalCountry(t *testing.T) {
	body := []byte(`{
		"id": "ABW",
		"iso2Code": "AW",
		"name": "Aruba",
		"region": {"id": "LCN", "iso2code": "ZJ", "value": "Latin America & Caribbean"},
		"incomeLevel": {"id": "HIC", "value": "High income"}
	}`)
	country, err := model.UnmarshalCountry(body)
	require.NoError(t, err)
	require.Equal(t, model.Country{
		Code:        "ABW",
		Name:        "Aruba",
		RegionID:    "LCN",
		RegionName:  "Latin America & Caribbean",
		IncomeLevel: "High income",
	}, country)
}

func TestUnmarshalCountryMissingID(t *testing.T) {
	_, err := model.UnmarshalCountry([]byte(`{"name":"Nowhere"}`))
	require.Error(t, err)
	require.Equal(t, apierror.KindMalformed, apierror.KindOf(err))
}

func TestUnmarshalObservation(t *testing.T) {
	obs, ok, err := model.UnmarshalObservation([]byte(`{"countryiso3code":"ABW","date":"2021","value":123.5}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ABW", obs.CountryCode)
	require.Equal(t, 2021, obs.Year)
	require.True(t, obs.Value.Valid)
	require.Equal(t, "123.5", obs.Value.Decimal.String())
}

func TestUnmarshalObservationNullValue(t *testing.T) {
	obs, ok, err := model.UnmarshalObservation([]byte(`{"countryiso3code":"ABW","date":"2022","value":null}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, obs.Value.Valid)
}

func TestUnmarshalObservationDiscarded(t *testing.T) {
	// No country code: some aggregate rows omit it.
	_, ok, err := model.UnmarshalObservation([]byte(`{"countryiso3code":"","date":"2021","value":1}`))
	require.NoError(t, err)
	require.False(t, ok)

	// No date: unusable for latest-value reduction.
	_, ok, err = model.UnmarshalObservation([]byte(`{"countryiso3code":"ABW","date":"","value":1}`))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUnmarshalObservationBadDate(t *testing.T) {
	_, _, err := model.UnmarshalObservation([]byte(`{"countryiso3code":"ABW","date":"2021Q3","value":1}`))
	require.Error(t, err)
	require.Equal(t, apierror.KindMalformed, apierror.KindOf(err))
}
