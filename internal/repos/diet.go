package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

type DietTagRepo interface {
	Create(ctx context.Context, tx *gorm.DB, t *types.DietTag) error
	GetByKey(ctx context.Context, tx *gorm.DB, key string) (*types.DietTag, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.DietTag, error)
}

type dietTagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDietTagRepo(db *gorm.DB, baseLog *logger.Logger) DietTagRepo {
	return &dietTagRepo{db: db, log: baseLog.With("repo", "DietTagRepo")}
}

func (r *dietTagRepo) Create(ctx context.Context, tx *gorm.DB, t *types.DietTag) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(t).Error
}

func (r *dietTagRepo) GetByKey(ctx context.Context, tx *gorm.DB, key string) (*types.DietTag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var tag types.DietTag
	err := transaction.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&tag).Error
	if err != nil {
		return nil, err
	}
	if tag.ID == uuid.Nil {
		return nil, nil
	}
	return &tag, nil
}

func (r *dietTagRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.DietTag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DietTag
	if err := transaction.WithContext(ctx).Order("key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type DietInferenceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, res *types.DietInferenceResult) error
	// Latest returns the newest result for the pair, highest engine version
	// first, then most recently computed.
	Latest(ctx context.Context, tx *gorm.DB, restaurantID, dietTagID uuid.UUID) (*types.DietInferenceResult, error)
	LatestByRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, engineVersion int) ([]*types.DietInferenceResult, error)
}

type dietInferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDietInferenceRepo(db *gorm.DB, baseLog *logger.Logger) DietInferenceRepo {
	return &dietInferenceRepo{db: db, log: baseLog.With("repo", "DietInferenceRepo")}
}

func (r *dietInferenceRepo) Create(ctx context.Context, tx *gorm.DB, res *types.DietInferenceResult) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	// Re-running the same engine version refreshes that version's row in
	// place; distinct versions append.
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "restaurant_id"}, {Name: "diet_tag_id"}, {Name: "engine_version"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "confidence", "reasons", "computed_at",
		}),
	}).Create(res).Error
}

func (r *dietInferenceRepo) Latest(ctx context.Context, tx *gorm.DB, restaurantID, dietTagID uuid.UUID) (*types.DietInferenceResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var res types.DietInferenceResult
	err := transaction.WithContext(ctx).
		Where("restaurant_id = ? AND diet_tag_id = ?", restaurantID, dietTagID).
		Order("engine_version DESC, computed_at DESC").
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *dietInferenceRepo) LatestByRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, engineVersion int) ([]*types.DietInferenceResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DietInferenceResult
	if err := transaction.WithContext(ctx).
		Where("restaurant_id = ? AND engine_version = ?", restaurantID, engineVersion).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type DietOverrideRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, o *types.DietManualOverride) error
	Get(ctx context.Context, tx *gorm.DB, restaurantID, dietTagID uuid.UUID) (*types.DietManualOverride, error)
	ListByRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.DietManualOverride, error)
	Delete(ctx context.Context, tx *gorm.DB, restaurantID, dietTagID uuid.UUID) error
}

type dietOverrideRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDietOverrideRepo(db *gorm.DB, baseLog *logger.Logger) DietOverrideRepo {
	return &dietOverrideRepo{db: db, log: baseLog.With("repo", "DietOverrideRepo")}
}

func (r *dietOverrideRepo) Upsert(ctx context.Context, tx *gorm.DB, o *types.DietManualOverride) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "restaurant_id"}, {Name: "diet_tag_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"supported", "notes", "created_by", "updated_at",
		}),
	}).Create(o).Error
}

func (r *dietOverrideRepo) Get(ctx context.Context, tx *gorm.DB, restaurantID, dietTagID uuid.UUID) (*types.DietManualOverride, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var o types.DietManualOverride
	err := transaction.WithContext(ctx).
		Where("restaurant_id = ? AND diet_tag_id = ?", restaurantID, dietTagID).
		Limit(1).
		Find(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == uuid.Nil {
		return nil, nil
	}
	return &o, nil
}

func (r *dietOverrideRepo) ListByRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.DietManualOverride, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DietManualOverride
	if err := transaction.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dietOverrideRepo) Delete(ctx context.Context, tx *gorm.DB, restaurantID, dietTagID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("restaurant_id = ? AND diet_tag_id = ?", restaurantID, dietTagID).
		Delete(&types.DietManualOverride{}).Error
}
