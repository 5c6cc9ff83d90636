package repository

import (
	"sort"
	"strings"
	"sync"
)

// DeviceToken is a push target and the symbols it wants alerts for.
// An empty Symbols set subscribes to every symbol.
type DeviceToken struct {
	Token     string
	Platform  string // "android" or "ios"
	Symbols   map[string]struct{}
	CreatedAt int64
}

// TokenRepository manages device tokens for band breach alerts.
type TokenRepository struct {
	tokens map[string]*DeviceToken // token -> DeviceToken
	mu     sync.RWMutex
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		tokens: make(map[string]*DeviceToken),
	}
}

// RegisterToken adds or replaces a device token and its subscriptions.
func (r *TokenRepository) RegisterToken(token, platform string, symbols []string, timestamp int64) {
	subs := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			subs[s] = struct{}{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token] = &DeviceToken{
		Token:     token,
		Platform:  platform,
		Symbols:   subs,
		CreatedAt: timestamp,
	}
}

func (r *TokenRepository) UnregisterToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
}

// TokensForSymbol returns the tokens subscribed to symbol, sorted.
func (r *TokenRepository) TokensForSymbol(symbol string) []string {
	symbol = strings.ToUpper(symbol)

	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.tokens))
	for token, dt := range r.tokens {
		if len(dt.Symbols) == 0 {
			tokens = append(tokens, token)
			continue
		}
		if _, ok := dt.Symbols[symbol]; ok {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens
}

func (r *TokenRepository) GetTokenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tokens)
}
