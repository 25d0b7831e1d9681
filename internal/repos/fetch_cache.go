package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

type FetchCacheRepo interface {
	Get(ctx context.Context, tx *gorm.DB, providerKey, cacheKey string) (*types.ProviderFetchCache, error)
	Upsert(ctx context.Context, tx *gorm.DB, entry *types.ProviderFetchCache) error
	PurgeExpired(ctx context.Context, tx *gorm.DB, olderThan time.Time) (int64, error)
}

type fetchCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFetchCacheRepo(db *gorm.DB, baseLog *logger.Logger) FetchCacheRepo {
	return &fetchCacheRepo{db: db, log: baseLog.With("repo", "FetchCacheRepo")}
}

func (r *fetchCacheRepo) Get(ctx context.Context, tx *gorm.DB, providerKey, cacheKey string) (*types.ProviderFetchCache, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entry types.ProviderFetchCache
	err := transaction.WithContext(ctx).
		Where("provider_key = ? AND cache_key = ?", providerKey, cacheKey).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}

// Upsert matches on (provider_key, cache_key) before insert, so the benign
// double-fetch race for the same expired URL ends with a single row.
func (r *fetchCacheRepo) Upsert(ctx context.Context, tx *gorm.DB, entry *types.ProviderFetchCache) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_key"}, {Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"url", "status_code", "body", "fetched_at", "expires_at",
		}),
	}).Create(entry).Error
}

func (r *fetchCacheRepo) PurgeExpired(ctx context.Context, tx *gorm.DB, olderThan time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("expires_at < ?", olderThan).
		Delete(&types.ProviderFetchCache{})
	return res.RowsAffected, res.Error
}
