package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

const (
	AlertStatusActive    = "active"
	AlertStatusDismissed = "dismissed"
	AlertStatusAll       = "all"
)

type AlertFilter struct {
	Type        string
	ProviderKey string
	Status      string // active | dismissed | all; empty means active
}

type SyncAlertRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.SyncAlert) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SyncAlert, error)
	HasActive(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey, alertType string) (bool, error)
	ListFiltered(ctx context.Context, tx *gorm.DB, filter AlertFilter, limit int) ([]*types.SyncAlert, error)
	Dismiss(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	DismissAllFiltered(ctx context.Context, tx *gorm.DB, filter AlertFilter) (int64, error)
}

type syncAlertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncAlertRepo(db *gorm.DB, baseLog *logger.Logger) SyncAlertRepo {
	return &syncAlertRepo{db: db, log: baseLog.With("repo", "SyncAlertRepo")}
}

func (r *syncAlertRepo) Create(ctx context.Context, tx *gorm.DB, a *types.SyncAlert) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(a).Error
}

func (r *syncAlertRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SyncAlert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var a types.SyncAlert
	err := transaction.WithContext(ctx).Limit(1).Find(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *syncAlertRepo) HasActive(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey, alertType string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).
		Model(&types.SyncAlert{}).
		Where("restaurant_id = ? AND provider_key = ? AND type = ? AND dismissed = ?",
			restaurantID, providerKey, alertType, false).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func applyAlertFilter(q *gorm.DB, filter AlertFilter) *gorm.DB {
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.ProviderKey != "" {
		q = q.Where("provider_key = ?", filter.ProviderKey)
	}
	switch filter.Status {
	case AlertStatusAll:
	case AlertStatusDismissed:
		q = q.Where("dismissed = ?", true)
	default:
		q = q.Where("dismissed = ?", false)
	}
	return q
}

func (r *syncAlertRepo) ListFiltered(ctx context.Context, tx *gorm.DB, filter AlertFilter, limit int) ([]*types.SyncAlert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.SyncAlert
	q := applyAlertFilter(transaction.WithContext(ctx).Model(&types.SyncAlert{}), filter)
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *syncAlertRepo) Dismiss(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.SyncAlert{}).
		Where("id = ? AND dismissed = ?", id, false).
		Update("dismissed", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *syncAlertRepo) DismissAllFiltered(ctx context.Context, tx *gorm.DB, filter AlertFilter) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	// Dismissing already-dismissed rows is a no-op whatever the filter says.
	filter.Status = AlertStatusActive
	res := applyAlertFilter(transaction.WithContext(ctx).Model(&types.SyncAlert{}), filter).
		Update("dismissed", true)
	return res.RowsAffected, res.Error
}
