package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"channel-backend/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

const writeWait = 10 * time.Second

// Handler streams channel snapshots to websocket clients.
type Handler struct {
	repo     domain.ChannelRepository
	interval time.Duration
}

func NewHandler(repo domain.ChannelRepository, interval time.Duration) *Handler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Handler{
		repo:     repo,
		interval: interval,
	}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send initial data immediately
	if err := h.push(r, conn); err != nil {
		log.Debug().Err(err).Msg("websocket write failed")
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := h.push(r, conn); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func (h *Handler) push(r *http.Request, conn *websocket.Conn) error {
	snaps, err := h.repo.ListSnapshots(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list snapshots")
		snaps = []*domain.ChannelSnapshot{}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snaps)
}
