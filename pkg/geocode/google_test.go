package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/affordability-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     1,
	}
}

func newTestGoogle(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewGoogleProvider("test-key",
		WithBaseURL(srv.URL),
		WithRetry(fastRetry()),
	)
	p.limiter = rate.NewLimiter(rate.Inf, 1)
	return p
}

func TestGoogleProvider_Lookup(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "postal_code:30301|country:US", r.URL.Query().Get("components"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "Atlanta, GA 30301, USA",
				"geometry": {"location": {"lat": 33.7490, "lng": -84.3880}, "location_type": "APPROXIMATE"}
			}]
		}`))
	})

	pt, found, err := p.Lookup(context.Background(), "30301")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 33.749, pt.Lat, 1e-9)
	assert.InDelta(t, -84.388, pt.Lon, 1e-9)
	assert.Equal(t, "google", p.Name())
	assert.True(t, p.Available())
}

func TestGoogleProvider_ZeroResults(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	_, found, err := p.Lookup(context.Background(), "00000")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGoogleProvider_RequestDenied(t *testing.T) {
	var calls atomic.Int32
	p := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`))
	})

	_, _, err := p.Lookup(context.Background(), "30301")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
	assert.Contains(t, err.Error(), "API key is invalid")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGoogleProvider_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	p := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status": "OK", "results": [{"geometry": {"location": {"lat": 42.35, "lng": -71.13}}}]}`))
	})

	pt, found, err := p.Lookup(context.Background(), "02134")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 42.35, pt.Lat, 1e-9)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGoogleProvider_OverQueryLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	p := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status": "OVER_QUERY_LIMIT"}`))
	})

	_, _, err := p.Lookup(context.Background(), "30301")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OVER_QUERY_LIMIT")
	assert.Equal(t, int32(3), calls.Load())
}

func TestGoogleProvider_BreakerOpens(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	for range 5 {
		_, _, err := p.Lookup(context.Background(), "30301")
		require.Error(t, err)
	}
	assert.False(t, p.Available())

	_, _, err := p.Lookup(context.Background(), "30301")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestGoogleProvider_NoKey(t *testing.T) {
	p := NewGoogleProvider("")
	assert.False(t, p.Available())

	_, _, err := p.Lookup(context.Background(), "30301")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestGoogleProvider_InvalidZip(t *testing.T) {
	p := newTestGoogle(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected for an invalid zip")
	})

	_, found, err := p.Lookup(context.Background(), "not-a-zip")
	require.NoError(t, err)
	assert.False(t, found)
}
