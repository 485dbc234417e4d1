package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noBackoff keeps retry loops instant in tests.
var noBackoff = RetryConfig{
	MaxRetries:     2,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     time.Millisecond,
	BackoffFactor:  1.0,
}

func TestNewWeatherClient_RequiresKey(t *testing.T) {
	_, err := NewWeatherClient("", "metric")
	assert.Error(t, err)
}

func TestWeatherFetch_PassThrough(t *testing.T) {
	payload := `{"lat":25.04,"lon":121.56,"data":[{"temp":28.4,"weather":[{"main":"Rain"}]}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "25.040000", r.URL.Query().Get("lat"))
		assert.Equal(t, "121.560000", r.URL.Query().Get("lon"))
		assert.Equal(t, "1710470000", r.URL.Query().Get("dt"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c, err := NewWeatherClient("test-key", "metric", WithWeatherBaseURL(srv.URL))
	require.NoError(t, err)

	snap, err := c.Fetch(context.Background(), 25.04, 121.56, 1710470000)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.JSONEq(t, payload, string(snap.Raw))
}

func TestWeatherFetch_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c, err := NewWeatherClient("test-key", "metric",
		WithWeatherBaseURL(srv.URL), WithWeatherRetry(noBackoff))
	require.NoError(t, err)

	snap, err := c.Fetch(context.Background(), 1, 2, 3)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWeatherFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewWeatherClient("bad-key", "metric",
		WithWeatherBaseURL(srv.URL), WithWeatherRetry(noBackoff))
	require.NoError(t, err)

	snap, err := c.Fetch(context.Background(), 1, 2, 3)
	assert.Error(t, err)
	assert.Nil(t, snap)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWeatherFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewWeatherClient("test-key", "metric",
		WithWeatherBaseURL(srv.URL),
		WithWeatherHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}),
		WithWeatherRetry(RetryConfig{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 1}),
	)
	require.NoError(t, err)

	snap, err := c.Fetch(context.Background(), 1, 2, 3)
	assert.Error(t, err)
	assert.Nil(t, snap)
}

func TestWeatherFetch_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := NewWeatherClient("test-key", "metric", WithWeatherBaseURL(srv.URL))
	require.NoError(t, err)

	snap, err := c.Fetch(context.Background(), 1, 2, 3)
	assert.Error(t, err)
	assert.Nil(t, snap)
}
