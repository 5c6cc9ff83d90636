package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"channel-backend/internal/domain"
	"channel-backend/internal/usecase"
)

// ChannelEvaluator runs channel evaluations for live symbols.
type ChannelEvaluator interface {
	Evaluate(ctx context.Context, symbol, interval string, cfg *domain.ChannelConfig) (*domain.ChannelSnapshot, error)
	Defaults() domain.ChannelConfig
}

// ChannelHandler serves regression channel endpoints
type ChannelHandler struct {
	evaluator ChannelEvaluator
	repo      domain.ChannelRepository
}

func NewChannelHandler(evaluator ChannelEvaluator, repo domain.ChannelRepository) *ChannelHandler {
	return &ChannelHandler{evaluator: evaluator, repo: repo}
}

type ComputeRequest struct {
	Bars   []domain.Bar         `json:"bars"`
	Config domain.ChannelConfig `json:"config"`
}

type EvaluateRequest struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// HandleCompute handles POST /api/channel/compute. The channel is computed
// over the bars in the body; config fields left out keep their defaults.
func (h *ChannelHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := ComputeRequest{Config: h.evaluator.Defaults()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bands, err := usecase.ComputeChannel(req.Bars, req.Config)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bands)
}

// HandleEvaluate handles POST /api/channel/evaluate
func (h *ChannelHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var cfg *domain.ChannelConfig
	if len(req.Config) > 0 && string(req.Config) != "null" {
		c := h.evaluator.Defaults()
		if err := json.Unmarshal(req.Config, &c); err != nil {
			http.Error(w, "Invalid config", http.StatusBadRequest)
			return
		}
		cfg = &c
	}

	snap, err := h.evaluator.Evaluate(r.Context(), req.Symbol, req.Interval, cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// HandleChannel handles GET and DELETE /api/channel?symbol=BTCUSDT&interval=1d
func (h *ChannelHandler) HandleChannel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getChannel(w, r)
	case http.MethodDelete:
		h.deleteChannel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func channelKey(w http.ResponseWriter, r *http.Request) (symbol, interval string, ok bool) {
	symbol = strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	interval = r.URL.Query().Get("interval")
	if symbol == "" || interval == "" {
		http.Error(w, "symbol and interval are required", http.StatusBadRequest)
		return "", "", false
	}
	return symbol, interval, true
}

func (h *ChannelHandler) getChannel(w http.ResponseWriter, r *http.Request) {
	symbol, interval, ok := channelKey(w, r)
	if !ok {
		return
	}

	snap, err := h.repo.GetSnapshot(r.Context(), symbol, interval)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// deleteChannel drops a stored snapshot. Deleting a missing one is not an
// error.
func (h *ChannelHandler) deleteChannel(w http.ResponseWriter, r *http.Request) {
	symbol, interval, ok := channelKey(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteSnapshot(r.Context(), symbol, interval); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("symbol", symbol).Str("interval", interval).Msg("channel snapshot deleted")

	w.WriteHeader(http.StatusNoContent)
}

// HandleListChannels handles GET /api/channels
func (h *ChannelHandler) HandleListChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snaps, err := h.repo.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snaps)
}

// writeJSON encodes v before touching the response, so an unencodable value
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSnapshotNotFound):
		status = http.StatusNotFound
	default:
		log.Error().Err(err).Msg("channel request failed")
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
