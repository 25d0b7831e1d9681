package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

type CredentialRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, c *types.ProviderCredential) error
	GetByProvider(ctx context.Context, tx *gorm.DB, providerKey string) (*types.ProviderCredential, error)
}

type credentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCredentialRepo(db *gorm.DB, baseLog *logger.Logger) CredentialRepo {
	return &credentialRepo{db: db, log: baseLog.With("repo", "CredentialRepo")}
}

func (r *credentialRepo) Upsert(ctx context.Context, tx *gorm.DB, c *types.ProviderCredential) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"label", "encrypted_secret", "updated_at",
		}),
	}).Create(c).Error
}

func (r *credentialRepo) GetByProvider(ctx context.Context, tx *gorm.DB, providerKey string) (*types.ProviderCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.ProviderCredential
	err := transaction.WithContext(ctx).
		Where("provider_key = ?", providerKey).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}
