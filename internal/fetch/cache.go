package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/clients/redis"
	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/types"
)

type CachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// CredentialSource resolves a provider's stored API secret, if one exists.
// Satisfied by services.CredentialService.
type CredentialSource interface {
	GetSecret(ctx context.Context, providerKey string) (string, bool, error)
}

// Cache is the TTL layer between connectors and the fetch gate. Connectors
// only ever see this type; a transient provider outage is logged here and
// surfaces as a nil response, never as an error that would abort a sync.
type Cache struct {
	gate       Fetcher
	cacheRepo  repos.FetchCacheRepo
	hot        *redis.HotCache
	creds      CredentialSource
	defaultTTL time.Duration
	timeout    time.Duration
	log        *logger.Logger
}

func NewCache(gate Fetcher, cacheRepo repos.FetchCacheRepo, hot *redis.HotCache, creds CredentialSource, defaultTTL, timeout time.Duration, baseLog *logger.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{
		gate:       gate,
		cacheRepo:  cacheRepo,
		hot:        hot,
		creds:      creds,
		defaultTTL: defaultTTL,
		timeout:    timeout,
		log:        baseLog.With("component", "FetchCache"),
	}
}

// CacheKey hashes the full URL, not host+path, so query-distinguished pages
// get distinct entries.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// GetOrFetch returns a cached response if a non-expired entry exists,
// otherwise fetches through the gate and refreshes the entry. A fetch
// failure returns (nil, nil). Persistence failures propagate.
func (c *Cache) GetOrFetch(ctx context.Context, tx *gorm.DB, providerKey, url string, ttl time.Duration) (*CachedResponse, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := CacheKey(url)
	hotKey := fmt.Sprintf("fetch:%s:%s", providerKey, key)

	if raw, ok := c.hot.Get(ctx, hotKey); ok {
		var resp CachedResponse
		if err := json.Unmarshal(raw, &resp); err == nil {
			return &resp, nil
		}
	}

	entry, err := c.cacheRepo.Get(ctx, tx, providerKey, key)
	if err != nil {
		return nil, fmt.Errorf("fetch cache: lookup: %w", err)
	}
	now := time.Now().UTC()
	if entry != nil && entry.ExpiresAt.After(now) {
		resp := &CachedResponse{StatusCode: entry.StatusCode, Body: entry.Body}
		c.hotSet(ctx, hotKey, resp, entry.ExpiresAt.Sub(now))
		return resp, nil
	}

	result, err := c.gate.Fetch(ctx, url, c.authToken(ctx, providerKey), c.timeout)
	if err != nil {
		c.log.Warn("fetch failed, treating as no data",
			"provider", providerKey,
			"url", url,
			"error", err,
		)
		return nil, nil
	}

	fresh := &types.ProviderFetchCache{
		ProviderKey: providerKey,
		CacheKey:    key,
		URL:         url,
		StatusCode:  result.StatusCode,
		Body:        result.Body,
		FetchedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := c.cacheRepo.Upsert(ctx, tx, fresh); err != nil {
		return nil, fmt.Errorf("fetch cache: upsert: %w", err)
	}

	resp := &CachedResponse{StatusCode: result.StatusCode, Body: result.Body}
	c.hotSet(ctx, hotKey, resp, ttl)
	return resp, nil
}

// authToken looks up the provider's stored credential for an outbound
// request. A lookup failure downgrades to an unauthenticated fetch; the
// provider then answers 401/403 and the cycle skips, same as any outage.
func (c *Cache) authToken(ctx context.Context, providerKey string) string {
	if c.creds == nil {
		return ""
	}
	secret, found, err := c.creds.GetSecret(ctx, providerKey)
	if err != nil {
		c.log.Warn("credential lookup failed, fetching unauthenticated",
			"provider", providerKey,
			"error", err,
		)
		return ""
	}
	if !found {
		return ""
	}
	return secret
}

func (c *Cache) hotSet(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	if c.hot == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.hot.Set(ctx, key, raw, ttl)
}
