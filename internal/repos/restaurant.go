package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/types"
)

type RestaurantFilter struct {
	Cuisine    string
	City       string
	Query      string
	ActiveOnly bool
}

type RestaurantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, r *types.Restaurant) error
	Save(ctx context.Context, tx *gorm.DB, r *types.Restaurant) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Restaurant, error)
	GetByIDWithMenu(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Restaurant, error)
	GetByNameAndCity(ctx context.Context, tx *gorm.DB, name, city string) (*types.Restaurant, error)
	List(ctx context.Context, tx *gorm.DB, filter RestaurantFilter, limit int) ([]*types.Restaurant, error)
	SetActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, active bool) error
	ReplaceProviderCuisines(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, values []string) error
}

type restaurantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRestaurantRepo(db *gorm.DB, baseLog *logger.Logger) RestaurantRepo {
	return &restaurantRepo{db: db, log: baseLog.With("repo", "RestaurantRepo")}
}

func (r *restaurantRepo) Create(ctx context.Context, tx *gorm.DB, rest *types.Restaurant) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(rest).Error
}

func (r *restaurantRepo) Save(ctx context.Context, tx *gorm.DB, rest *types.Restaurant) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Omit("Cuisines", "ProviderRefs", "Categories").
		Save(rest).Error
}

func (r *restaurantRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rest types.Restaurant
	err := transaction.WithContext(ctx).First(&rest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *restaurantRepo) GetByIDWithMenu(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rest types.Restaurant
	err := transaction.WithContext(ctx).
		Preload("Cuisines").
		Preload("ProviderRefs").
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		}).
		Preload("Categories.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		}).
		First(&rest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *restaurantRepo) GetByNameAndCity(ctx context.Context, tx *gorm.DB, name, city string) (*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rest types.Restaurant
	err := transaction.WithContext(ctx).
		Where("LOWER(name) = ? AND LOWER(city) = ?", strings.ToLower(name), strings.ToLower(city)).
		Limit(1).
		Find(&rest).Error
	if err != nil {
		return nil, err
	}
	if rest.ID == uuid.Nil {
		return nil, nil
	}
	return &rest, nil
}

func (r *restaurantRepo) List(ctx context.Context, tx *gorm.DB, filter RestaurantFilter, limit int) ([]*types.Restaurant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := transaction.WithContext(ctx).Model(&types.Restaurant{}).Preload("Cuisines")
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.City != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(filter.City))
	}
	if filter.Query != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Query)+"%")
	}
	if filter.Cuisine != "" {
		q = q.Where("id IN (?)", transaction.Model(&types.RestaurantCuisine{}).
			Select("restaurant_id").
			Where("LOWER(value) = ?", strings.ToLower(filter.Cuisine)))
	}
	var out []*types.Restaurant
	if err := q.Order("name ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *restaurantRepo) SetActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, active bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Restaurant{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

// ReplaceProviderCuisines swaps the provider-sourced cuisine rows for the
// given restaurant; manual rows are left untouched.
func (r *restaurantRepo) ReplaceProviderCuisines(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, values []string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.
			Where("restaurant_id = ? AND source = ?", restaurantID, types.CuisineSourceProvider).
			Delete(&types.RestaurantCuisine{}).Error; err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" || seen[strings.ToLower(v)] {
				continue
			}
			seen[strings.ToLower(v)] = true
			row := &types.RestaurantCuisine{
				RestaurantID: restaurantID,
				Value:        v,
				Source:       types.CuisineSourceProvider,
			}
			if err := txx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
