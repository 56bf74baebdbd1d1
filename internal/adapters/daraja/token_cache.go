package daraja

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/kevin07696/mpesa-sdk/pkg/observability"
	"github.com/kevin07696/mpesa-sdk/pkg/secret"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSafetyMargin is subtracted from the provider TTL so a token is
	// refreshed before the provider stops honouring it
	DefaultSafetyMargin = 60 * time.Second

	// DefaultFetchTimeout bounds a single token fetch, independent of any caller
	DefaultFetchTimeout = 30 * time.Second
)

// TokenKey identifies the credential set a token was issued for
type TokenKey struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret secret.Secret
}

// id hashes the key so secrets are never held as map keys
func (k TokenKey) id() string {
	h := sha256.New()
	h.Write([]byte(k.Environment))
	h.Write([]byte{0})
	h.Write([]byte(k.ConsumerKey))
	h.Write([]byte{0})
	h.Write([]byte(k.ConsumerSecret.Reveal()))
	return hex.EncodeToString(h.Sum(nil))
}

// AccessToken is a cached bearer token and the instant it stops being served
type AccessToken struct {
	Value     secret.Secret
	ExpiresAt time.Time
}

// ValidAt reports whether the token may be served at now. A token is expired
// at exactly ExpiresAt.
func (t AccessToken) ValidAt(now time.Time) bool {
	return !t.Value.IsEmpty() && now.Before(t.ExpiresAt)
}

// FetchFunc obtains a fresh token. The context it receives is detached from
// the caller that triggered the fetch.
type FetchFunc func(ctx context.Context) (*TokenResponse, error)

// TokenCacheConfig holds the token cache tunables
type TokenCacheConfig struct {
	SafetyMargin time.Duration
	FetchTimeout time.Duration
	Clock        func() time.Time
}

// DefaultTokenCacheConfig returns a config with the default margin, fetch timeout and wall clock
func DefaultTokenCacheConfig() TokenCacheConfig {
	return TokenCacheConfig{
		SafetyMargin: DefaultSafetyMargin,
		FetchTimeout: DefaultFetchTimeout,
		Clock:        time.Now,
	}
}

// TokenCache stores one access token per TokenKey and collapses concurrent
// refreshes for the same key into a single fetch.
//
// Entries are replaced wholesale, so readers never see a token paired with
// another token's expiry. Failed fetches are never stored.
type TokenCache struct {
	config  TokenCacheConfig
	mu      sync.RWMutex
	entries map[string]AccessToken
	flights singleflight.Group
}

// NewTokenCache creates a token cache. A zero FetchTimeout or nil Clock takes the default;
// a zero SafetyMargin disables the margin.
func NewTokenCache(config TokenCacheConfig) *TokenCache {
	defaults := DefaultTokenCacheConfig()
	if config.SafetyMargin < 0 {
		config.SafetyMargin = 0
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}

	return &TokenCache{
		config:  config,
		entries: make(map[string]AccessToken),
	}
}

// Get returns a valid token for key, calling fetch when the cached token is
// absent or expired. Concurrent callers for the same key share one fetch.
//
// If ctx ends while waiting, Get returns ctx.Err(); the shared fetch keeps
// running and its result is still stored for later callers.
func (c *TokenCache) Get(ctx context.Context, key TokenKey, fetch FetchFunc) (AccessToken, error) {
	id := key.id()

	if tok, ok := c.lookup(id); ok {
		observability.RecordTokenLookup(true)
		return tok, nil
	}
	observability.RecordTokenLookup(false)

	ch := c.flights.DoChan(id, func() (interface{}, error) {
		// A flight that finished between our lookup and this one may have stored a token
		if tok, ok := c.lookup(id); ok {
			return tok, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.FetchTimeout)
		defer cancel()

		resp, err := fetch(fetchCtx)
		observability.RecordTokenFetch(err)
		if err != nil {
			return AccessToken{}, err
		}

		tok := AccessToken{
			Value:     resp.AccessToken,
			ExpiresAt: c.expiresAt(resp.ExpiresIn),
		}
		c.store(id, tok)
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return AccessToken{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return AccessToken{}, res.Err
		}
		return res.Val.(AccessToken), nil
	}
}

// Peek returns the stored token for key without fetching, even if it has expired
func (c *TokenCache) Peek(key TokenKey) (AccessToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tok, ok := c.entries[key.id()]
	return tok, ok
}

func (c *TokenCache) lookup(id string) (AccessToken, bool) {
	c.mu.RLock()
	tok, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || !tok.ValidAt(c.config.Clock()) {
		return AccessToken{}, false
	}
	return tok, true
}

func (c *TokenCache) store(id string, tok AccessToken) {
	c.mu.Lock()
	c.entries[id] = tok
	c.mu.Unlock()
}

// expiresAt applies the safety margin unless it would consume the whole TTL
func (c *TokenCache) expiresAt(ttl time.Duration) time.Time {
	effective := ttl
	if ttl-c.config.SafetyMargin > 0 {
		effective = ttl - c.config.SafetyMargin
	}
	return c.config.Clock().Add(effective)
}
