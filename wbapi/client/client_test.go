package client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openstat/go-wbdata/apierror"
	"github.com/openstat/go-wbdata/wbapi/client"
	"github.com/stretchr/testify/require"
)

// pagedHandler serves records through the two-element page envelope,
// honoring the per_page and page query parameters.
type pagedHandler struct {
	records  []string
	total    int // declared total; set to len(records) for honest servers
	requests atomic.Int32
}

func (h *pagedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.requests.Add(1)
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		http.Error(w, "bad per_page", http.StatusBadRequest)
		return
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(h.records) {
		start = len(h.records)
	}
	if end > len(h.records) {
		end = len(h.records)
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `[{"page":%d,"per_page":"%d","total":%d},[%s]]`,
		page, perPage, h.total, strings.Join(h.records[start:end], ","))
}

func countryRecord(code string) string {
	return fmt.Sprintf(`{"id":%q,"name":"Country %s","region":{"id":"R1","value":"Region One"},"incomeLevel":{"value":"High income"}}`, code, code)
}

func TestCountriesPaginated(t *testing.T) {
	handler := &pagedHandler{
		records: []string{
			countryRecord("AAA"), countryRecord("BBB"), countryRecord("CCC"),
			countryRecord("DDD"), countryRecord("EEE"),
		},
	}
	handler.total = len(handler.records)
	server := httptest.NewServer(handler)
	defer server.Close()

	c, err := client.New(server.URL, client.WithCountryPageSize(2))
	require.NoError(t, err)

	countries, err := c.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, countries, 5)
	require.Equal(t, "AAA", countries[0].Code)
	require.Equal(t, "EEE", countries[4].Code)
	require.Equal(t, int32(3), handler.requests.Load())
}

func TestPaginationExhaustionSignal(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if requests.Add(1) == 1 {
			// Declared total of 10 is never reached.
			fmt.Fprintf(w, `[{"page":1,"total":10},[%s,%s]]`, countryRecord("AAA"), countryRecord("BBB"))
			return
		}
		fmt.Fprint(w, `[{"message":"no more data"}]`)
	}))
	defer server.Close()

	c, err := client.New(server.URL)
	require.NoError(t, err)

	countries, err := c.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, countries, 2)
	require.Equal(t, int32(2), requests.Load())
}

func TestFirstPageNotEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"message":"invalid indicator"}]`)
	}))
	defer server.Close()

	c, err := client.New(server.URL)
	require.NoError(t, err)

	_, err = c.Countries(context.Background())
	require.Error(t, err)
	require.Equal(t, apierror.KindMalformed, apierror.KindOf(err))
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := client.New(server.URL)
	require.NoError(t, err)

	_, err = c.Countries(context.Background())
	require.Error(t, err)
	require.Equal(t, apierror.KindTransport, apierror.KindOf(err))

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status())
}

func TestRetryThenSuccess(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"page":1,"total":1},[%s]]`, countryRecord("AAA"))
	}))
	defer server.Close()

	c, err := client.New(server.URL,
		client.WithRetry(2, time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	countries, err := c.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, countries, 1)
	require.Equal(t, int32(2), requests.Load())
}

func TestPageCeiling(t *testing.T) {
	// The server lies about the total, returning one record forever.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"page":1,"total":1000},[%s]]`, countryRecord("AAA"))
	}))
	defer server.Close()

	c, err := client.New(server.URL, client.WithMaxPages(3))
	require.NoError(t, err)

	_, err = c.Countries(context.Background())
	require.Error(t, err)
	require.Equal(t, apierror.KindMalformed, apierror.KindOf(err))
	require.ErrorContains(t, err, "page limit")
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c, err := client.New(server.URL,
		client.WithClient(&http.Client{Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.Countries(context.Background())
	require.Error(t, err)
	require.Equal(t, apierror.KindTimeout, apierror.KindOf(err))
}

func TestObservations(t *testing.T) {
	var gotPath, gotDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDate = r.URL.Query().Get("date")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"page":1,"total":3},[
			{"countryiso3code":"AAA","date":"2020","value":5.5},
			{"countryiso3code":"","date":"2020","value":1},
			{"countryiso3code":"BBB","date":"2021","value":null}
		]]`)
	}))
	defer server.Close()

	c, err := client.New(server.URL)
	require.NoError(t, err)

	observations, err := c.Observations(context.Background(), "NY.GDP.MKTP.CD", 2010, 2028)
	require.NoError(t, err)
	require.Equal(t, "/country/all/indicator/NY.GDP.MKTP.CD", gotPath)
	require.Equal(t, "2010:2028", gotDate)

	// The keyless record is dropped; the null-valued one is kept.
	require.Len(t, observations, 2)
	require.Equal(t, "AAA", observations[0].CountryCode)
	require.True(t, observations[0].Value.Valid)
	require.Equal(t, "BBB", observations[1].CountryCode)
	require.False(t, observations[1].Value.Valid)
}

func TestObservationsEmptyIndicator(t *testing.T) {
	c, err := client.New("https://example.invalid/v2")
	require.NoError(t, err)

	_, err = c.Observations(context.Background(), "", 2010, 2028)
	require.Error(t, err)
}

func TestBadScheme(t *testing.T) {
	_, err := client.New("ftp://example.com/v2")
	require.Error(t, err)
}
