package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"channel-backend/internal/domain"
)

const (
	FapiBaseURL = "https://fapi.binance.com"

	maxKlineLimit = 1500
)

// Client reads market data from the Binance futures REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = FapiBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	st := gobreaker.Settings{
		Name:     "binance",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected request (unknown symbol, bad interval) says nothing
		// about the health of the API.
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.ClientError()
			}
			return err == nil
		},
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker:    gobreaker.NewCircuitBreaker(st),
	}
}

// StatusError is a non-200 answer from Binance.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("binance API error: %d %s", e.StatusCode, e.Body)
}

// ClientError reports a 4xx answer other than rate limiting.
func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// Unwrap lets callers match client errors with domain.ErrInvalidRequest.
func (e *StatusError) Unwrap() error {
	if e.ClientError() {
		return domain.ErrInvalidRequest
	}
	return nil
}

// GetKlines returns candlestick data as bars, oldest first.
// Binance returns: [ [open_time, open, high, low, close, volume, ...], ... ]
// with prices encoded as strings.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error) {
	if symbol == "" || interval == "" {
		return nil, errors.New("symbol and interval are required")
	}
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	var raw [][]interface{}
	if err := c.get(ctx, "/fapi/v1/klines?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, k := range raw {
		bar, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var apiErr struct {
				Msg string `json:"msg"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: apiErr.Msg}
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}

func parseKline(k []interface{}) (domain.Bar, error) {
	if len(k) < 6 {
		return domain.Bar{}, fmt.Errorf("short kline row: %d fields", len(k))
	}

	openTime, err := parseValue(k[0])
	if err != nil {
		return domain.Bar{}, fmt.Errorf("open time: %w", err)
	}

	var fields [5]float64
	for i := range fields {
		v, err := parseValue(k[i+1])
		if err != nil {
			return domain.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		fields[i] = v
	}

	return domain.Bar{
		Time:   time.UnixMilli(int64(openTime)).UTC(),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

func parseValue(v interface{}) (float64, error) {
	switch val := v.(type) {
	case string:
		return strconv.ParseFloat(val, 64)
	case float64:
		return val, nil
	case json.Number:
		return val.Float64()
	}
	return 0, fmt.Errorf("unexpected value type %T", v)
}
