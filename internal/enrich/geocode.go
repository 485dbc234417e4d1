package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GeocodeResult is the first element of the provider's results list,
// kept verbatim.
type GeocodeResult struct {
	Raw json.RawMessage
}

// geocodeResponse is the envelope of the reverse-geocode payload; only
// the status and the raw first result are inspected.
type geocodeResponse struct {
	Status  string            `json:"status"`
	Results []json.RawMessage `json:"results"`
}

// GeocodeClient reverse-geocodes coordinates.
type GeocodeClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retry      RetryConfig
}

// GeocodeOption configures a GeocodeClient.
type GeocodeOption func(*GeocodeClient)

// WithGeocodeHTTPClient sets a custom HTTP client.
func WithGeocodeHTTPClient(hc *http.Client) GeocodeOption {
	return func(c *GeocodeClient) { c.httpClient = hc }
}

// WithGeocodeBaseURL overrides the provider endpoint.
func WithGeocodeBaseURL(u string) GeocodeOption {
	return func(c *GeocodeClient) { c.baseURL = u }
}

// WithGeocodeRetry overrides the backoff behavior.
func WithGeocodeRetry(cfg RetryConfig) GeocodeOption {
	return func(c *GeocodeClient) { c.retry = cfg }
}

// NewGeocodeClient creates a reverse-geocoding client.
func NewGeocodeClient(apiKey string, opts ...GeocodeOption) (*GeocodeClient, error) {
	if apiKey == "" {
		return nil, eris.New("geocode: api key is required")
	}
	c := &GeocodeClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultGeocodeURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(10, 10),
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Reverse looks up the address of a coordinate. A lookup that matches
// nothing returns (nil, nil); that is an absent result, not an error.
func (c *GeocodeClient) Reverse(ctx context.Context, lat, lon float64) (*GeocodeResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"latlng": {fmt.Sprintf("%f,%f", lat, lon)},
		"key":    {c.apiKey},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	var body []byte
	err := retryWithBackoff(ctx, "reverse geocode", c.retry, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return eris.Wrap(reqErr, "geocode: build request")
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return eris.Wrap(doErr, "geocode: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode}
		}

		body, doErr = io.ReadAll(resp.Body)
		if doErr != nil {
			return eris.Wrap(doErr, "geocode: read body")
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "geocode: reverse")
	}

	var envelope geocodeResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	if envelope.Status != "OK" || len(envelope.Results) == 0 {
		zap.L().Debug("reverse geocode: no result",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.String("status", envelope.Status),
		)
		return nil, nil
	}

	return &GeocodeResult{Raw: envelope.Results[0]}, nil
}
