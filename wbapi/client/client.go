package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"
	logging "github.com/ipfs/go-log/v2"
	"github.com/openstat/go-wbdata/apierror"
	"github.com/openstat/go-wbdata/wbapi/model"
)

var log = logging.Logger("wbapi/client")

const (
	countryPath   = "country"
	indicatorPath = "indicator"
	allCountries  = "all"
)

// Client is an http client for the statistics API. It retrieves complete
// collections by walking every page of a paginated endpoint.
type Client struct {
	c       *http.Client
	baseURL *url.URL

	countryPerPage int
	seriesPerPage  int
	maxPages       int
}

// New creates a new statistics API client. The base URL must include the API
// version prefix, for example https://api.worldbank.org/v2.
func New(baseURL string, options ...Option) (*Client, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", baseURL)
	}

	httpClient := opts.httpClient
	if opts.retryMax != 0 {
		// Wrap the transport in a retrying client. Retries stay below the
		// paginator: a page is either fully retrieved or the fetch fails.
		rclient := &retryablehttp.Client{
			HTTPClient:   httpClient,
			RetryWaitMin: opts.retryWaitMin,
			RetryWaitMax: opts.retryWaitMax,
			RetryMax:     opts.retryMax,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			Backoff:      retryablehttp.DefaultBackoff,
		}
		httpClient = rclient.StandardClient()
	}

	return &Client{
		c:              httpClient,
		baseURL:        u,
		countryPerPage: opts.countryPerPage,
		seriesPerPage:  opts.seriesPerPage,
		maxPages:       opts.maxPages,
	}, nil
}

// Countries retrieves the complete country reference collection, across all
// pages. No filtering is done here; aggregate placeholder records are
// returned as-is.
func (c *Client) Countries(ctx context.Context) ([]model.Country, error) {
	u := c.baseURL.JoinPath(countryPath)
	query := url.Values{}
	query.Set("format", "json")
	query.Set("per_page", strconv.Itoa(c.countryPerPage))

	raw, err := c.fetchAllPages(ctx, u, query)
	if err != nil {
		return nil, err
	}

	countries := make([]model.Country, 0, len(raw))
	for _, rec := range raw {
		country, err := model.UnmarshalCountry(rec)
		if err != nil {
			return nil, err
		}
		countries = append(countries, country)
	}
	return countries, nil
}

// Observations retrieves the raw time series for one indicator over the year
// range [startYear, endYear], across all pages. Records the source emits
// without a country code or date are dropped; null values are kept.
func (c *Client) Observations(ctx context.Context, indicator string, startYear, endYear int) ([]model.Observation, error) {
	if indicator == "" {
		return nil, errors.New("indicator id must not be empty")
	}
	u := c.baseURL.JoinPath(countryPath, allCountries, indicatorPath, indicator)
	query := url.Values{}
	query.Set("format", "json")
	query.Set("per_page", strconv.Itoa(c.seriesPerPage))
	query.Set("date", fmt.Sprintf("%d:%d", startYear, endYear))

	raw, err := c.fetchAllPages(ctx, u, query)
	if err != nil {
		return nil, err
	}

	observations := make([]model.Observation, 0, len(raw))
	var dropped int
	for _, rec := range raw {
		obs, ok, err := model.UnmarshalObservation(rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			dropped++
			continue
		}
		observations = append(observations, obs)
	}
	if dropped != 0 {
		log.Debugw("Dropped keyless observation records", "indicator", indicator, "count", dropped)
	}
	return observations, nil
}

// fetchAllPages walks a paginated endpoint until the accumulated record count
// reaches the total declared in the first page's metadata, or until the
// server signals end-of-data by returning a non-envelope body. The page
// ceiling guards against a misreported total; hitting it means the result is
// incomplete, which is an error rather than a silently short collection.
func (c *Client) fetchAllPages(ctx context.Context, u *url.URL, query url.Values) ([]json.RawMessage, error) {
	var records []json.RawMessage
	var total int

	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, apierror.New(apierror.KindMalformed,
				fmt.Errorf("%s: page limit %d reached with %d of %d records", u.Path, c.maxPages, len(records), total), 0)
		}

		query.Set("page", strconv.Itoa(page))
		pageURL := *u
		pageURL.RawQuery = query.Encode()

		body, err := c.get(ctx, &pageURL)
		if err != nil {
			return nil, err
		}

		pageTotal, pageRecords, ok, err := model.UnmarshalPage(body)
		if err != nil {
			return nil, err
		}
		if !ok {
			if page == 1 {
				// Nothing was retrieved; a non-envelope first page is a
				// malformed response, not exhaustion.
				return nil, apierror.New(apierror.KindMalformed,
					fmt.Errorf("%s: response is not a page envelope", u.Path), 0)
			}
			log.Debugw("Pagination ended by non-envelope response", "path", u.Path, "page", page)
			break
		}
		if page == 1 {
			total = pageTotal
		}

		records = append(records, pageRecords...)
		if len(records) >= total {
			break
		}
	}

	log.Debugw("Retrieved all pages", "path", u.Path, "records", len(records))
	return records, nil
}

func (c *Client) get(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.c.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apierror.New(apierror.KindTimeout, err, 0)
		}
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return nil, apierror.New(apierror.KindTimeout, err, 0)
		}
		return nil, apierror.New(apierror.KindTransport, err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.New(apierror.KindTransport, err, 0)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apierror.FromResponse(resp.StatusCode, body)
	}

	return body, nil
}
