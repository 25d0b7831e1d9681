package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/types"
)

func SeedRestaurant(tb testing.TB, ctx context.Context, tx *gorm.DB, name, city string) *types.Restaurant {
	tb.Helper()
	r := &types.Restaurant{
		ID:           uuid.New(),
		Name:         name,
		AddressLine1: "1 Test Street",
		City:         city,
		PostalCode:   "10115",
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed restaurant: %v", err)
	}
	return r
}

func SeedProviderRef(tb testing.TB, ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey string, externalID *string, url string) *types.ProviderRef {
	tb.Helper()
	ref := &types.ProviderRef{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		ProviderKey:  providerKey,
		ExternalID:   externalID,
		URL:          url,
		Status:       types.ProviderRefStatusActive,
	}
	if err := tx.WithContext(ctx).Create(ref).Error; err != nil {
		tb.Fatalf("seed provider ref: %v", err)
	}
	return ref
}

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, name string, sortOrder int) *types.MenuCategory {
	tb.Helper()
	c := &types.MenuCategory{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         name,
		SortOrder:    sortOrder,
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedItem(tb testing.TB, ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, name string, price *float64) *types.MenuItem {
	tb.Helper()
	i := &types.MenuItem{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Name:       name,
		Price:      price,
		Currency:   "EUR",
		IsActive:   true,
	}
	if err := tx.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed item: %v", err)
	}
	return i
}

func SeedDietTag(tb testing.TB, ctx context.Context, tx *gorm.DB, key, label string, keywords, allergens []string) *types.DietTag {
	tb.Helper()
	t := &types.DietTag{
		ID:                uuid.New(),
		Key:               key,
		Label:             label,
		Keywords:          JSONList(tb, keywords),
		DishWhitelist:     datatypes.JSON([]byte("[]")),
		ExcludedAllergens: JSONList(tb, allergens),
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed diet tag: %v", err)
	}
	return t
}

func JSONList(tb testing.TB, values []string) datatypes.JSON {
	tb.Helper()
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		tb.Fatalf("marshal json list: %v", err)
	}
	return datatypes.JSON(raw)
}

func FloatPtr(v float64) *float64 { return &v }

func StrPtr(v string) *string { return &v }
