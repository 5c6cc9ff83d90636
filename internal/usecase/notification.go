package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"channel-backend/internal/domain"
)

// sendBreachNotifications alerts subscribers when the last price closed
// outside the channel. Each symbol/interval is alerted at most once per
// cooldown.
func (uc *ChannelUsecase) sendBreachNotifications(ctx context.Context, snaps []*domain.ChannelSnapshot) {
	if uc.notifier == nil || !uc.notifier.IsEnabled() || uc.tokenRepo == nil {
		return
	}

	now := uc.now()
	cooldown := uc.watchlist.AlertCooldown

	for _, snap := range snaps {
		if snap.Position != domain.PositionAboveUpper && snap.Position != domain.PositionBelowLower {
			continue
		}

		key := snap.Key()
		uc.mu.RLock()
		last, exists := uc.notified[key]
		uc.mu.RUnlock()
		if exists && now.Sub(last) < cooldown {
			continue
		}

		tokens := uc.tokenRepo.TokensForSymbol(snap.Symbol)
		if len(tokens) == 0 {
			continue
		}

		title, body, data := breachMessage(snap)
		if err := uc.notifier.SendMulticast(ctx, tokens, title, body, data); err != nil {
			log.Error().Err(err).Str("symbol", snap.Symbol).Msg("breach notification failed")
			continue
		}
		log.Info().Str("symbol", snap.Symbol).Str("interval", snap.Interval).Int("devices", len(tokens)).Msg("breach notification sent")

		uc.mu.Lock()
		uc.notified[key] = now
		uc.mu.Unlock()
	}

	// Cleanup old entries
	uc.mu.Lock()
	for key, ts := range uc.notified {
		if now.Sub(ts) > cooldown*2 {
			delete(uc.notified, key)
		}
	}
	uc.mu.Unlock()
}

func breachMessage(snap *domain.ChannelSnapshot) (title, body string, data map[string]string) {
	upper, middle, lower, _ := snap.Bands.At(snap.Bands.Fit.WindowEnd)

	side := "above upper band"
	if snap.Position == domain.PositionBelowLower {
		side = "below lower band"
	}
	title = fmt.Sprintf("%s %s %s", snap.Symbol, snap.Interval, side)
	body = fmt.Sprintf("Price: %.5f | Upper: %.5f | Middle: %.5f | Lower: %.5f",
		snap.LastPrice, upper, middle, lower)

	data = map[string]string{
		"type":     "CHANNEL_BREACH",
		"symbol":   snap.Symbol,
		"interval": snap.Interval,
		"position": string(snap.Position),
		"price":    fmt.Sprintf("%.5f", snap.LastPrice),
		"upper":    fmt.Sprintf("%.5f", upper),
		"lower":    fmt.Sprintf("%.5f", lower),
	}
	return title, body, data
}
