package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderFetchCache stores one raw provider response per (provider_key,
// cache_key) where cache_key = sha256 of the full URL. Pure cache: safe to
// truncate, repopulated lazily.
type ProviderFetchCache struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderKey string    `gorm:"column:provider_key;not null;uniqueIndex:idx_fetch_cache_provider_key" json:"provider_key"`
	CacheKey    string    `gorm:"column:cache_key;not null;uniqueIndex:idx_fetch_cache_provider_key" json:"cache_key"`
	URL         string    `gorm:"column:url;not null" json:"url"`
	StatusCode  int       `gorm:"column:status_code;not null" json:"status_code"`
	Body        []byte    `gorm:"column:body" json:"-"`
	FetchedAt   time.Time `gorm:"column:fetched_at;not null" json:"fetched_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
}

func (ProviderFetchCache) TableName() string { return "provider_fetch_cache" }

func (c *ProviderFetchCache) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
