package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

type SyncJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.SyncJob) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SyncJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SyncJob, error)
	CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error)
}

type syncJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncJobRepo(db *gorm.DB, baseLog *logger.Logger) SyncJobRepo {
	return &syncJobRepo{db: db, log: baseLog.With("repo", "SyncJobRepo")}
}

func (r *syncJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.SyncJob) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(job).Error
}

func (r *syncJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SyncJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.SyncJob
	err := transaction.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *syncJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.SyncJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *syncJobRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SyncJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []*types.SyncJob
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *syncJobRepo) CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).
		Model(&types.SyncJob{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}
