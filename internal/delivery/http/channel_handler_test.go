package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-backend/internal/config"
	"channel-backend/internal/domain"
	"channel-backend/internal/infrastructure/binance"
	"channel-backend/internal/repository"
	"channel-backend/internal/usecase"
)

type staticSource struct {
	bars []domain.Bar
}

func (s staticSource) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error) {
	if symbol == "BOGUS" {
		return nil, &binance.StatusError{StatusCode: http.StatusBadRequest, Body: "Invalid symbol."}
	}
	if symbol == "DOWN" {
		return nil, &binance.StatusError{StatusCode: http.StatusServiceUnavailable}
	}
	return s.bars, nil
}

func trendBars(n int) []domain.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 10 + float64(i)
		bars[i] = domain.Bar{Time: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func newTestServer(t *testing.T) (*httptest.Server, *repository.InMemoryChannelRepository, *repository.TokenRepository) {
	t.Helper()
	repo := repository.NewInMemoryChannelRepository()
	tokens := repository.NewTokenRepository()

	defaults := domain.DefaultChannelConfig()
	defaults.RegressionType = domain.RegressionLinear
	uc := usecase.NewChannelUsecase(repo, staticSource{bars: trendBars(10)}, nil, tokens, config.Default().Watchlist, defaults)

	mux := http.NewServeMux()
	Register(mux, NewChannelHandler(uc, repo), NewTokenHandler(tokens))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, repo, tokens
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleCompute(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/channel/compute", map[string]interface{}{
		"bars":   trendBars(10),
		"config": map[string]interface{}{"fullRange": false, "length": 5, "expansionBars": 2},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var bands domain.ChannelBands
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bands))
	require.Len(t, bands.Middle, 7)
	assert.Equal(t, 5, bands.Middle[0].Index)
	assert.Equal(t, 11, bands.Middle[6].Index)
	assert.InDelta(t, 21.0, bands.Middle[6].Value, 1e-9)
	assert.Equal(t, 8, bands.Color)
}

func TestHandleCompute_InvalidConfig(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/channel/compute", map[string]interface{}{
		"bars":   trendBars(10),
		"config": map[string]interface{}{"length": -1},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "length")
}

func TestHandleCompute_EmptyWindowIsNotAnError(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/channel/compute", map[string]interface{}{
		"bars":   trendBars(10),
		"config": map[string]interface{}{"fullRange": false, "rangeType": "start date", "startDate": 20300101},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bands domain.ChannelBands
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bands))
	assert.True(t, bands.Empty())
}

func TestHandleCompute_MethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/channel/compute")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleEvaluateAndGet(t *testing.T) {
	ts, repo, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/channel/evaluate", EvaluateRequest{Symbol: "btcusdt", Interval: "1d"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.ChannelSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, domain.PositionInside, snap.Position)

	_, err := repo.GetSnapshot(context.Background(), "BTCUSDT", "1d")
	require.NoError(t, err)

	get, err := http.Get(ts.URL + "/api/channel?symbol=btcusdt&interval=1d")
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	missing, err := http.Get(ts.URL + "/api/channel?symbol=ETHUSDT&interval=1d")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	list, err := http.Get(ts.URL + "/api/channels")
	require.NoError(t, err)
	defer list.Body.Close()
	var snaps []domain.ChannelSnapshot
	require.NoError(t, json.NewDecoder(list.Body).Decode(&snaps))
	assert.Len(t, snaps, 1)
}

func TestHandleEvaluate_PartialConfig(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/channel/evaluate", map[string]interface{}{
		"symbol":   "BTCUSDT",
		"interval": "1d",
		"config":   map[string]interface{}{"deviations": 3.5},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.ChannelSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, 3.5, snap.Config.Deviations)
	assert.Equal(t, domain.RegressionLinear, snap.Config.RegressionType, "unset fields keep the defaults")
}

func TestHandleEvaluate_BadInterval(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/channel/evaluate", EvaluateRequest{Symbol: "BTCUSDT", Interval: "2w"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenHandlers(t *testing.T) {
	ts, _, tokens := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/tokens/register", RegisterTokenRequest{Token: "abc", Symbols: []string{"BTCUSDT"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, []string{"abc"}, tokens.TokensForSymbol("BTCUSDT"))
	assert.Empty(t, tokens.TokensForSymbol("ETHUSDT"))

	resp = postJSON(t, ts.URL+"/api/tokens/register", RegisterTokenRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/tokens/unregister", RegisterTokenRequest{Token: "abc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, tokens.GetTokenCount())
}

func TestHandleEvaluate_UpstreamErrors(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/channel/evaluate", EvaluateRequest{Symbol: "BOGUS", Interval: "1d"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "a symbol the exchange rejects is a bad request")

	resp = postJSON(t, ts.URL+"/api/channel/evaluate", EvaluateRequest{Symbol: "DOWN", Interval: "1d"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleDeleteChannel(t *testing.T) {
	ts, repo, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveSnapshot(ctx, &domain.ChannelSnapshot{Symbol: "BTCUSDT", Interval: "1d"}))

	del := func(query string) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/channel"+query, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusNoContent, del("?symbol=btcusdt&interval=1d").StatusCode)
	_, err := repo.GetSnapshot(ctx, "BTCUSDT", "1d")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	assert.Equal(t, http.StatusNoContent, del("?symbol=BTCUSDT&interval=1d").StatusCode, "deleting twice is fine")
	assert.Equal(t, http.StatusBadRequest, del("?symbol=BTCUSDT").StatusCode)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/channel?symbol=BTCUSDT&interval=1d", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, domain.ChannelFit{StdDev: math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}
