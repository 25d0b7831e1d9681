package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

type ProviderRefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, ref *types.ProviderRef) error
	Save(ctx context.Context, tx *gorm.DB, ref *types.ProviderRef) error
	GetByProviderAndExternalID(ctx context.Context, tx *gorm.DB, providerKey, externalID string) (*types.ProviderRef, error)
	GetByProviderAndURL(ctx context.Context, tx *gorm.DB, providerKey, url string) (*types.ProviderRef, error)
	ListByRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.ProviderRef, error)
	ListActiveByProvider(ctx context.Context, tx *gorm.DB, providerKey string) ([]*types.ProviderRef, error)
	MarkStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
	TouchSync(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type providerRefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProviderRefRepo(db *gorm.DB, baseLog *logger.Logger) ProviderRefRepo {
	return &providerRefRepo{db: db, log: baseLog.With("repo", "ProviderRefRepo")}
}

func (r *providerRefRepo) Create(ctx context.Context, tx *gorm.DB, ref *types.ProviderRef) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(ref).Error
}

func (r *providerRefRepo) Save(ctx context.Context, tx *gorm.DB, ref *types.ProviderRef) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(ref).Error
}

func (r *providerRefRepo) GetByProviderAndExternalID(ctx context.Context, tx *gorm.DB, providerKey, externalID string) (*types.ProviderRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if providerKey == "" || externalID == "" {
		return nil, nil
	}
	var ref types.ProviderRef
	err := transaction.WithContext(ctx).
		Where("provider_key = ? AND external_id = ?", providerKey, externalID).
		Limit(1).
		Find(&ref).Error
	if err != nil {
		return nil, err
	}
	if ref.ID == uuid.Nil {
		return nil, nil
	}
	return &ref, nil
}

func (r *providerRefRepo) GetByProviderAndURL(ctx context.Context, tx *gorm.DB, providerKey, url string) (*types.ProviderRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if providerKey == "" || url == "" {
		return nil, nil
	}
	var ref types.ProviderRef
	err := transaction.WithContext(ctx).
		Where("provider_key = ? AND url = ?", providerKey, url).
		Limit(1).
		Find(&ref).Error
	if err != nil {
		return nil, err
	}
	if ref.ID == uuid.Nil {
		return nil, nil
	}
	return &ref, nil
}

func (r *providerRefRepo) ListByRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.ProviderRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ProviderRef
	if err := transaction.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *providerRefRepo) ListActiveByProvider(ctx context.Context, tx *gorm.DB, providerKey string) ([]*types.ProviderRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ProviderRef
	if err := transaction.WithContext(ctx).
		Where("provider_key = ? AND status = ?", providerKey, types.ProviderRefStatusActive).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *providerRefRepo) MarkStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ProviderRef{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *providerRefRepo) TouchSync(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ProviderRef{}).
		Where("id = ?", id).
		Update("last_sync_at", at).Error
}
