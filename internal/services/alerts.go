package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/types"
)

// AlertService raises review-queue entries for the three sync conditions a
// human should look at. Raising is idempotent against active alerts of the
// same type for the same restaurant/provider pair.
type AlertService interface {
	RaiseRestaurantGone(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey string) (bool, error)
	RaiseMenuChanged(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey string, diff MenuDiff) (bool, error)
	CheckOverrideStaleness(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey string, menuChanged bool) (int, error)
	List(ctx context.Context, filter repos.AlertFilter, limit int) ([]*types.SyncAlert, error)
	Dismiss(ctx context.Context, id uuid.UUID) (bool, error)
	DismissAll(ctx context.Context, filter repos.AlertFilter) (int64, error)
}

type alertService struct {
	alertRepo     repos.SyncAlertRepo
	overrideRepo  repos.DietOverrideRepo
	inferenceRepo repos.DietInferenceRepo
	log           *logger.Logger
}

func NewAlertService(
	alertRepo repos.SyncAlertRepo,
	overrideRepo repos.DietOverrideRepo,
	inferenceRepo repos.DietInferenceRepo,
	baseLog *logger.Logger,
) AlertService {
	return &alertService{
		alertRepo:     alertRepo,
		overrideRepo:  overrideRepo,
		inferenceRepo: inferenceRepo,
		log:           baseLog.With("service", "AlertService"),
	}
}

func (s *alertService) raiseDeduped(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey, alertType, message string) (bool, error) {
	active, err := s.alertRepo.HasActive(ctx, tx, restaurantID, providerKey, alertType)
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}
	alert := &types.SyncAlert{
		RestaurantID: restaurantID,
		ProviderKey:  providerKey,
		Type:         alertType,
		Message:      message,
	}
	if err := s.alertRepo.Create(ctx, tx, alert); err != nil {
		return false, err
	}
	s.log.Info("alert raised", "type", alertType, "restaurant_id", restaurantID, "provider_key", providerKey)
	return true, nil
}

func (s *alertService) RaiseRestaurantGone(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey string) (bool, error) {
	msg := fmt.Sprintf("restaurant disappeared from %s listing", providerKey)
	return s.raiseDeduped(ctx, tx, restaurantID, providerKey, types.AlertTypeRestaurantGone, msg)
}

// RaiseMenuChanged is diff-driven rather than deduped: each material change
// is its own event, so repeats are allowed even while an earlier alert is
// still open.
func (s *alertService) RaiseMenuChanged(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey string, diff MenuDiff) (bool, error) {
	if !diff.Material() {
		return false, nil
	}
	alert := &types.SyncAlert{
		RestaurantID: restaurantID,
		ProviderKey:  providerKey,
		Type:         types.AlertTypeMenuChanged,
		Message:      "menu changed: " + diff.Summary(),
	}
	if err := s.alertRepo.Create(ctx, tx, alert); err != nil {
		return false, err
	}
	return true, nil
}

// CheckOverrideStaleness walks the restaurant's manual diet overrides and
// flags the ones that look out of date: the menu just changed underneath
// them, or a newer inference result disagrees with the curator's verdict.
// Returns how many alerts were raised.
func (s *alertService) CheckOverrideStaleness(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, providerKey string, menuChanged bool) (int, error) {
	overrides, err := s.overrideRepo.ListByRestaurant(ctx, tx, restaurantID)
	if err != nil {
		return 0, err
	}
	raised := 0
	for _, o := range overrides {
		stale := menuChanged
		if !stale {
			latest, err := s.inferenceRepo.Latest(ctx, tx, restaurantID, o.DietTagID)
			if err != nil {
				return raised, err
			}
			if latest != nil && latest.ComputedAt.After(o.UpdatedAt) {
				inferredSupported := latest.Score >= SupportedThreshold
				stale = inferredSupported != o.Supported
			}
		}
		if !stale {
			continue
		}
		ok, err := s.raiseDeduped(ctx, tx, restaurantID, providerKey, types.AlertTypeDietOverrideStale,
			"manual diet override may be stale and should be re-reviewed")
		if err != nil {
			return raised, err
		}
		if ok {
			raised++
		}
	}
	return raised, nil
}

func (s *alertService) List(ctx context.Context, filter repos.AlertFilter, limit int) ([]*types.SyncAlert, error) {
	return s.alertRepo.ListFiltered(ctx, nil, filter, limit)
}

func (s *alertService) Dismiss(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.alertRepo.Dismiss(ctx, nil, id)
}

func (s *alertService) DismissAll(ctx context.Context, filter repos.AlertFilter) (int64, error) {
	return s.alertRepo.DismissAllFiltered(ctx, nil, filter)
}
