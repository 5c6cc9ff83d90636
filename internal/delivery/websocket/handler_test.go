package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-backend/internal/domain"
	"channel-backend/internal/repository"
)

func TestHandler_StreamsSnapshots(t *testing.T) {
	repo := repository.NewInMemoryChannelRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveSnapshot(ctx, &domain.ChannelSnapshot{
		Symbol:   "BTCUSDT",
		Interval: "1d",
		Position: domain.PositionInside,
	}))

	h := NewHandler(repo, 20*time.Millisecond)
	ts := httptest.NewServer(http.HandlerFunc(h.Handle))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first []domain.ChannelSnapshot
	require.NoError(t, conn.ReadJSON(&first))
	require.Len(t, first, 1)
	assert.Equal(t, "BTCUSDT", first[0].Symbol)

	require.NoError(t, repo.SaveSnapshot(ctx, &domain.ChannelSnapshot{Symbol: "ETHUSDT", Interval: "1d"}))

	// Pushes are periodic; the new snapshot shows up within a few ticks.
	for i := 0; i < 50; i++ {
		var next []domain.ChannelSnapshot
		require.NoError(t, conn.ReadJSON(&next))
		if len(next) == 2 {
			assert.Equal(t, "ETHUSDT", next[1].Symbol)
			return
		}
	}
	t.Fatal("new snapshot was never pushed")
}
