// Package enrich looks up supplementary context for a photo's
// coordinates: historical weather at the capture time and a reverse
// geocode of the site. Both clients are constructed explicitly with
// validated credentials; a provider failure is reported to the caller,
// who records the lookup as unavailable and moves on.
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

const defaultWeatherURL = "https://api.openweathermap.org/data/3.0/onecall/timemachine"

// WeatherSnapshot is the provider payload for one coordinate and unix
// timestamp, kept verbatim for the analysis stage.
type WeatherSnapshot struct {
	Raw json.RawMessage
}

// WeatherClient queries a historical weather provider.
type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	units      string
	limiter    *rate.Limiter
	retry      RetryConfig
}

// WeatherOption configures a WeatherClient.
type WeatherOption func(*WeatherClient)

// WithWeatherHTTPClient sets a custom HTTP client.
func WithWeatherHTTPClient(hc *http.Client) WeatherOption {
	return func(c *WeatherClient) { c.httpClient = hc }
}

// WithWeatherBaseURL overrides the provider endpoint.
func WithWeatherBaseURL(u string) WeatherOption {
	return func(c *WeatherClient) { c.baseURL = u }
}

// WithWeatherRetry overrides the backoff behavior.
func WithWeatherRetry(cfg RetryConfig) WeatherOption {
	return func(c *WeatherClient) { c.retry = cfg }
}

// NewWeatherClient creates a weather client. The API key must already
// have been validated by configuration; an empty key here is a
// programming error, not a runtime condition.
func NewWeatherClient(apiKey, units string, opts ...WeatherOption) (*WeatherClient, error) {
	if apiKey == "" {
		return nil, eris.New("weather: api key is required")
	}
	if units == "" {
		units = "metric"
	}
	c := &WeatherClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultWeatherURL,
		apiKey:     apiKey,
		units:      units,
		limiter:    rate.NewLimiter(10, 10),
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch returns the historical weather at the coordinate and unix
// timestamp. The payload is passed through unrestructured.
func (c *WeatherClient) Fetch(ctx context.Context, lat, lon float64, unixTS int64) (*WeatherSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "weather: rate limit")
	}

	params := url.Values{
		"lat":   {fmt.Sprintf("%f", lat)},
		"lon":   {fmt.Sprintf("%f", lon)},
		"dt":    {fmt.Sprintf("%d", unixTS)},
		"units": {c.units},
		"appid": {c.apiKey},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	var body []byte
	err := retryWithBackoff(ctx, "weather lookup", c.retry, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return eris.Wrap(reqErr, "weather: build request")
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return eris.Wrap(doErr, "weather: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode}
		}

		body, doErr = io.ReadAll(resp.Body)
		if doErr != nil {
			return eris.Wrap(doErr, "weather: read body")
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "weather: fetch")
	}

	if !json.Valid(body) {
		return nil, eris.New("weather: provider returned invalid JSON")
	}

	zap.L().Debug("weather lookup complete",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Int64("dt", unixTS),
	)
	return &WeatherSnapshot{Raw: body}, nil
}
