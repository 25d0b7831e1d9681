package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

type MenuRepo interface {
	ListCategories(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.MenuCategory, error)
	ListCategoriesWithItems(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.MenuCategory, error)
	ListItems(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID) ([]*types.MenuItem, error)
	CreateCategory(ctx context.Context, tx *gorm.DB, c *types.MenuCategory) error
	SaveCategory(ctx context.Context, tx *gorm.DB, c *types.MenuCategory) error
	CreateItem(ctx context.Context, tx *gorm.DB, i *types.MenuItem) error
	SaveItem(ctx context.Context, tx *gorm.DB, i *types.MenuItem) error
}

type menuRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMenuRepo(db *gorm.DB, baseLog *logger.Logger) MenuRepo {
	return &menuRepo{db: db, log: baseLog.With("repo", "MenuRepo")}
}

func (r *menuRepo) ListCategories(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.MenuCategory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MenuCategory
	if err := transaction.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("sort_order ASC, name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *menuRepo) ListCategoriesWithItems(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]*types.MenuCategory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MenuCategory
	if err := transaction.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		}).
		Where("restaurant_id = ?", restaurantID).
		Order("sort_order ASC, name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *menuRepo) ListItems(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID) ([]*types.MenuItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MenuItem
	if err := transaction.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("sort_order ASC, name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *menuRepo) CreateCategory(ctx context.Context, tx *gorm.DB, c *types.MenuCategory) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(c).Error
}

func (r *menuRepo) SaveCategory(ctx context.Context, tx *gorm.DB, c *types.MenuCategory) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Omit("Items").Save(c).Error
}

func (r *menuRepo) CreateItem(ctx context.Context, tx *gorm.DB, i *types.MenuItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(i).Error
}

func (r *menuRepo) SaveItem(ctx context.Context, tx *gorm.DB, i *types.MenuItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(i).Error
}
