package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/connectors"
	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/types"
)

// UpsertService reconciles a connector snapshot into the database. Rows are
// matched by case-insensitive name; anything present last sync but absent
// from the snapshot is deactivated, never deleted.
type UpsertService interface {
	UpsertSnapshot(ctx context.Context, tx *gorm.DB, providerKey string, ref connectors.ExternalRef, snap *connectors.Snapshot) (*types.Restaurant, bool, error)
	UpsertCategories(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, incoming []connectors.SnapshotCategory) error
	UpsertItems(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, incoming []connectors.SnapshotItem) error
}

type upsertService struct {
	restaurantRepo  repos.RestaurantRepo
	providerRefRepo repos.ProviderRefRepo
	menuRepo        repos.MenuRepo
	log             *logger.Logger
}

func NewUpsertService(
	restaurantRepo repos.RestaurantRepo,
	providerRefRepo repos.ProviderRefRepo,
	menuRepo repos.MenuRepo,
	baseLog *logger.Logger,
) UpsertService {
	return &upsertService{
		restaurantRepo:  restaurantRepo,
		providerRefRepo: providerRefRepo,
		menuRepo:        menuRepo,
		log:             baseLog.With("service", "UpsertService"),
	}
}

// UpsertSnapshot resolves the target restaurant (by provider ref, then by
// name+city), refreshes its fields and provider cuisines, maintains the
// provider ref, and reconciles the menu tree. The bool reports whether a new
// restaurant row was created.
func (s *upsertService) UpsertSnapshot(ctx context.Context, tx *gorm.DB, providerKey string, ref connectors.ExternalRef, snap *connectors.Snapshot) (*types.Restaurant, bool, error) {
	existingRef, err := s.resolveRef(ctx, tx, providerKey, ref)
	if err != nil {
		return nil, false, err
	}

	var rest *types.Restaurant
	if existingRef != nil {
		rest, err = s.restaurantRepo.GetByID(ctx, tx, existingRef.RestaurantID)
		if err != nil {
			return nil, false, err
		}
	}
	if rest == nil && snap.Name != "" && snap.City != "" {
		rest, err = s.restaurantRepo.GetByNameAndCity(ctx, tx, snap.Name, snap.City)
		if err != nil {
			return nil, false, err
		}
	}

	created := false
	if rest == nil {
		rest = &types.Restaurant{IsActive: true}
		applySnapshotFields(rest, snap)
		if err := s.restaurantRepo.Create(ctx, tx, rest); err != nil {
			return nil, false, err
		}
		created = true
	} else {
		applySnapshotFields(rest, snap)
		rest.IsActive = true
		if err := s.restaurantRepo.Save(ctx, tx, rest); err != nil {
			return nil, false, err
		}
	}

	if err := s.ensureRef(ctx, tx, existingRef, rest.ID, providerKey, ref); err != nil {
		return nil, false, err
	}

	if len(snap.Cuisines) > 0 {
		if err := s.restaurantRepo.ReplaceProviderCuisines(ctx, tx, rest.ID, snap.Cuisines); err != nil {
			return nil, false, err
		}
	}

	if err := s.UpsertCategories(ctx, tx, rest.ID, snap.Categories); err != nil {
		return nil, false, err
	}
	return rest, created, nil
}

func (s *upsertService) resolveRef(ctx context.Context, tx *gorm.DB, providerKey string, ref connectors.ExternalRef) (*types.ProviderRef, error) {
	if ref.ExternalID != "" {
		found, err := s.providerRefRepo.GetByProviderAndExternalID(ctx, tx, providerKey, ref.ExternalID)
		if err != nil || found != nil {
			return found, err
		}
	}
	if ref.URL != "" {
		return s.providerRefRepo.GetByProviderAndURL(ctx, tx, providerKey, ref.URL)
	}
	return nil, nil
}

func (s *upsertService) ensureRef(ctx context.Context, tx *gorm.DB, existing *types.ProviderRef, restaurantID uuid.UUID, providerKey string, ref connectors.ExternalRef) error {
	now := time.Now().UTC()
	if existing == nil {
		row := &types.ProviderRef{
			RestaurantID: restaurantID,
			ProviderKey:  providerKey,
			URL:          ref.URL,
			Status:       types.ProviderRefStatusActive,
			LastSyncAt:   &now,
		}
		if ref.ExternalID != "" {
			id := ref.ExternalID
			row.ExternalID = &id
		}
		return s.providerRefRepo.Create(ctx, tx, row)
	}
	existing.RestaurantID = restaurantID
	existing.Status = types.ProviderRefStatusActive
	existing.LastSyncAt = &now
	if ref.URL != "" {
		existing.URL = ref.URL
	}
	if ref.ExternalID != "" && existing.ExternalID == nil {
		id := ref.ExternalID
		existing.ExternalID = &id
	}
	return s.providerRefRepo.Save(ctx, tx, existing)
}

func applySnapshotFields(rest *types.Restaurant, snap *connectors.Snapshot) {
	if snap.Name != "" {
		rest.Name = snap.Name
	}
	if snap.AddressLine1 != "" {
		rest.AddressLine1 = snap.AddressLine1
	}
	if snap.AddressLine2 != "" {
		rest.AddressLine2 = snap.AddressLine2
	}
	if snap.City != "" {
		rest.City = snap.City
	}
	if snap.PostalCode != "" {
		rest.PostalCode = snap.PostalCode
	}
	if snap.Country != "" {
		rest.Country = snap.Country
	}
	if snap.OpeningHours != "" {
		rest.OpeningHours = snap.OpeningHours
	}
}

// UpsertCategories reconciles the restaurant's category set against the
// snapshot, then recurses into each category's items. Duplicate incoming
// names collapse onto one row, last occurrence winning.
func (s *upsertService) UpsertCategories(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, incoming []connectors.SnapshotCategory) error {
	existing, err := s.menuRepo.ListCategories(ctx, tx, restaurantID)
	if err != nil {
		return err
	}
	byName := make(map[string]*types.MenuCategory, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c
	}

	matched := map[uuid.UUID]bool{}
	for _, in := range incoming {
		key := strings.ToLower(in.Name)
		cat := byName[key]
		if cat == nil {
			cat = &types.MenuCategory{
				RestaurantID: restaurantID,
				Name:         in.Name,
				SortOrder:    in.SortOrder,
				IsActive:     true,
			}
			if err := s.menuRepo.CreateCategory(ctx, tx, cat); err != nil {
				return err
			}
			byName[key] = cat
		} else {
			cat.Name = in.Name
			cat.SortOrder = in.SortOrder
			cat.IsActive = true
			if err := s.menuRepo.SaveCategory(ctx, tx, cat); err != nil {
				return err
			}
		}
		matched[cat.ID] = true

		if err := s.UpsertItems(ctx, tx, cat.ID, in.Items); err != nil {
			return err
		}
	}

	for _, c := range existing {
		if matched[c.ID] || !c.IsActive {
			continue
		}
		c.IsActive = false
		if err := s.menuRepo.SaveCategory(ctx, tx, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *upsertService) UpsertItems(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, incoming []connectors.SnapshotItem) error {
	existing, err := s.menuRepo.ListItems(ctx, tx, categoryID)
	if err != nil {
		return err
	}
	byName := make(map[string]*types.MenuItem, len(existing))
	for _, i := range existing {
		byName[strings.ToLower(i.Name)] = i
	}

	matched := map[uuid.UUID]bool{}
	for _, in := range incoming {
		key := strings.ToLower(in.Name)
		item := byName[key]
		if item == nil {
			item = &types.MenuItem{
				CategoryID:  categoryID,
				Name:        in.Name,
				Description: in.Description,
				Price:       in.Price,
				Currency:    in.Currency,
				Allergens:   in.Allergens,
				SortOrder:   in.SortOrder,
				IsActive:    true,
			}
			if err := s.menuRepo.CreateItem(ctx, tx, item); err != nil {
				return err
			}
			byName[key] = item
		} else {
			item.Name = in.Name
			item.Description = in.Description
			item.Price = in.Price
			item.Currency = in.Currency
			item.Allergens = in.Allergens
			item.SortOrder = in.SortOrder
			item.IsActive = true
			if err := s.menuRepo.SaveItem(ctx, tx, item); err != nil {
				return err
			}
		}
		matched[item.ID] = true
	}

	for _, i := range existing {
		if matched[i.ID] || !i.IsActive {
			continue
		}
		i.IsActive = false
		if err := s.menuRepo.SaveItem(ctx, tx, i); err != nil {
			return err
		}
	}
	return nil
}
