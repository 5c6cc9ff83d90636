package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-backend/internal/domain"
)

func TestGetKlines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1704067200000, "42000.1", "43000.0", "41500.5", "42500.0", "1234.5", 1704153599999, "0", 100, "0", "0", "0"],
			[1704153600000, "42500.0", "44000.0", "42000.0", "43800.25", "2000", 1704239999999, "0", 100, "0", "0", "0"]
		]`))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL})
	bars, err := c.GetKlines(context.Background(), "BTCUSDT", "1d", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.True(t, bars[0].Time.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 42000.1, bars[0].Open)
	assert.Equal(t, 43000.0, bars[0].High)
	assert.Equal(t, 41500.5, bars[0].Low)
	assert.Equal(t, 42500.0, bars[0].Close)
	assert.Equal(t, 1234.5, bars[0].Volume)
	assert.Equal(t, 43800.25, bars[1].Close)
}

func TestGetKlines_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL})
	_, err := c.GetKlines(context.Background(), "NOPE", "1h", 10)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Invalid symbol.", statusErr.Body)
}

func TestGetKlines_MalformedRow(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1704067200000, "1", "2"]]`))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL})
	_, err := c.GetKlines(context.Background(), "BTCUSDT", "1d", 10)
	assert.Error(t, err)
}

func TestGetKlines_RequiresSymbol(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.GetKlines(context.Background(), "", "1d", 10)
	assert.Error(t, err)
}

func TestGetKlines_CanceledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Options{BaseURL: ts.URL})
	_, err := c.GetKlines(ctx, "BTCUSDT", "1d", 10)
	assert.Error(t, err)
}

func TestGetKlines_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("symbol") == "BOGUS" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		w.Write([]byte(`[[1704067200000, "1", "2", "0.5", "1.5", "10"]]`))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL, RequestsPerSecond: 1000, Burst: 100})
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := c.GetKlines(ctx, "BOGUS", "1d", 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	}
	assert.Equal(t, int32(10), calls.Load(), "every request reached the server")

	bars, err := c.GetKlines(ctx, "BTCUSDT", "1d", 10)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestGetKlines_ServerErrorsTripBreaker(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL, RequestsPerSecond: 1000, Burst: 100})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.GetKlines(ctx, "BTCUSDT", "1d", 10)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrInvalidRequest)
	}

	_, err := c.GetKlines(ctx, "BTCUSDT", "1d", 10)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load())
}

func TestStatusError_ClientError(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: http.StatusBadRequest}).ClientError())
	assert.True(t, (&StatusError{StatusCode: http.StatusNotFound}).ClientError())
	assert.False(t, (&StatusError{StatusCode: http.StatusTooManyRequests}).ClientError())
	assert.False(t, (&StatusError{StatusCode: http.StatusInternalServerError}).ClientError())
}
