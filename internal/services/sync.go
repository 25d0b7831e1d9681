package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/connectors"
	"github.com/platewise/platewise-backend/internal/fetch"
	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/types"
)

var ErrUnknownProvider = errors.New("unknown provider")

// ErrInvalidImport marks caller mistakes on manual imports (bad URL,
// oversized payload) so the job layer can record them as failures without
// retry semantics.
var ErrInvalidImport = errors.New("invalid import request")

// SyncService runs one provider cycle: list the provider's restaurants,
// pull each menu, reconcile, re-infer diets and raise alerts. Restaurants
// are processed one at a time; a dead provider skips, a dead database
// aborts.
type SyncService interface {
	SyncProvider(ctx context.Context, providerKey, query string) (int, error)
	SyncAll(ctx context.Context, query string) (int, error)
	ImportFromURL(ctx context.Context, providerKey, menuURL string) (int, error)
}

type syncService struct {
	registry        *connectors.Registry
	cache           *fetch.Cache
	upsertSvc       UpsertService
	dietSvc         DietService
	alertSvc        AlertService
	restaurantRepo  repos.RestaurantRepo
	providerRefRepo repos.ProviderRefRepo
	menuRepo        repos.MenuRepo
	fetchTTL        time.Duration
	importMaxBytes  int64
	log             *logger.Logger
}

func NewSyncService(
	registry *connectors.Registry,
	cache *fetch.Cache,
	upsertSvc UpsertService,
	dietSvc DietService,
	alertSvc AlertService,
	restaurantRepo repos.RestaurantRepo,
	providerRefRepo repos.ProviderRefRepo,
	menuRepo repos.MenuRepo,
	fetchTTL time.Duration,
	importMaxBytes int64,
	baseLog *logger.Logger,
) SyncService {
	return &syncService{
		registry:        registry,
		cache:           cache,
		upsertSvc:       upsertSvc,
		dietSvc:         dietSvc,
		alertSvc:        alertSvc,
		restaurantRepo:  restaurantRepo,
		providerRefRepo: providerRefRepo,
		menuRepo:        menuRepo,
		fetchTTL:        fetchTTL,
		importMaxBytes:  importMaxBytes,
		log:             baseLog.With("service", "SyncService"),
	}
}

func (s *syncService) SyncAll(ctx context.Context, query string) (int, error) {
	total := 0
	for _, key := range s.registry.Keys() {
		n, err := s.SyncProvider(ctx, key, query)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *syncService) SyncProvider(ctx context.Context, providerKey, query string) (int, error) {
	conn, ok := s.registry.Get(providerKey)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, providerKey)
	}
	log := s.log.With("provider_key", providerKey)

	refs, err := conn.ListRestaurants(ctx, "")
	if err != nil {
		if errors.Is(err, connectors.ErrNoData) {
			log.Warn("provider listing unavailable, skipping cycle", "error", err)
			return 0, nil
		}
		return 0, err
	}

	if err := s.reconcileGone(ctx, providerKey, refs); err != nil {
		return 0, err
	}

	if query != "" {
		q := strings.ToLower(query)
		filtered := refs[:0]
		for _, ref := range refs {
			if strings.Contains(strings.ToLower(ref.Name), q) {
				filtered = append(filtered, ref)
			}
		}
		refs = filtered
	}

	synced := 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		ok, err := s.syncOne(ctx, conn, providerKey, ref)
		if err != nil {
			return synced, err
		}
		if ok {
			synced++
		}
	}
	log.Info("provider cycle finished", "listed", len(refs), "synced", synced)
	return synced, nil
}

// reconcileGone flags refs that dropped out of the provider listing. A
// restaurant only deactivates once none of its refs, across all providers,
// is still active.
func (s *syncService) reconcileGone(ctx context.Context, providerKey string, listed []connectors.ExternalRef) error {
	byExternalID := map[string]bool{}
	byURL := map[string]bool{}
	for _, ref := range listed {
		if ref.ExternalID != "" {
			byExternalID[ref.ExternalID] = true
		}
		if ref.URL != "" {
			byURL[ref.URL] = true
		}
	}

	known, err := s.providerRefRepo.ListActiveByProvider(ctx, nil, providerKey)
	if err != nil {
		return err
	}
	for _, ref := range known {
		if ref.ExternalID != nil && byExternalID[*ref.ExternalID] {
			continue
		}
		if ref.URL != "" && byURL[ref.URL] {
			continue
		}
		if err := s.providerRefRepo.MarkStatus(ctx, nil, ref.ID, types.ProviderRefStatusGone); err != nil {
			return err
		}
		remaining, err := s.providerRefRepo.ListByRestaurant(ctx, nil, ref.RestaurantID)
		if err != nil {
			return err
		}
		anyActive := false
		for _, r := range remaining {
			if r.Status == types.ProviderRefStatusActive {
				anyActive = true
				break
			}
		}
		if !anyActive {
			if err := s.restaurantRepo.SetActive(ctx, nil, ref.RestaurantID, false); err != nil {
				return err
			}
		}
		if _, err := s.alertSvc.RaiseRestaurantGone(ctx, nil, ref.RestaurantID, providerKey); err != nil {
			return err
		}
	}
	return nil
}

// syncOne pulls and reconciles a single restaurant. Connector-side failures
// skip the restaurant; anything touching the database propagates up and
// fails the job.
func (s *syncService) syncOne(ctx context.Context, conn connectors.Connector, providerKey string, ref connectors.ExternalRef) (bool, error) {
	snap, err := conn.FetchMenu(ctx, ref)
	if err != nil {
		if errors.Is(err, connectors.ErrNoData) {
			s.log.Warn("menu unavailable, skipping restaurant", "provider_key", providerKey, "name", ref.Name, "error", err)
			return false, nil
		}
		return false, err
	}
	for _, w := range snap.Warnings {
		s.log.Warn("snapshot warning", "provider_key", providerKey, "name", ref.Name, "warning", w)
	}
	return true, s.reconcileSnapshot(ctx, nil, providerKey, ref, snap)
}

func (s *syncService) reconcileSnapshot(ctx context.Context, tx *gorm.DB, providerKey string, ref connectors.ExternalRef, snap *connectors.Snapshot) error {
	var before MenuState
	existingID, err := s.resolveExisting(ctx, tx, providerKey, ref, snap)
	if err != nil {
		return err
	}
	if existingID != uuid.Nil {
		before, err = CaptureMenuState(ctx, tx, s.menuRepo, existingID)
		if err != nil {
			return err
		}
	}

	rest, created, err := s.upsertSvc.UpsertSnapshot(ctx, tx, providerKey, ref, snap)
	if err != nil {
		return err
	}

	if err := s.dietSvc.InferForRestaurant(ctx, tx, rest.ID); err != nil {
		return err
	}

	menuChanged := false
	if !created && before != nil {
		after, err := CaptureMenuState(ctx, tx, s.menuRepo, rest.ID)
		if err != nil {
			return err
		}
		diff := DiffMenuStates(before, after)
		if diff.Material() {
			menuChanged = true
			if _, err := s.alertSvc.RaiseMenuChanged(ctx, tx, rest.ID, providerKey, diff); err != nil {
				return err
			}
		}
	}

	_, err = s.alertSvc.CheckOverrideStaleness(ctx, tx, rest.ID, providerKey, menuChanged)
	return err
}

// resolveExisting finds the restaurant this snapshot would land on, by
// provider ref first and name+city second, mirroring the upsert's own
// matching order so the before-state is captured for the right row.
func (s *syncService) resolveExisting(ctx context.Context, tx *gorm.DB, providerKey string, ref connectors.ExternalRef, snap *connectors.Snapshot) (uuid.UUID, error) {
	if ref.ExternalID != "" {
		pr, err := s.providerRefRepo.GetByProviderAndExternalID(ctx, tx, providerKey, ref.ExternalID)
		if err != nil {
			return uuid.Nil, err
		}
		if pr != nil {
			return pr.RestaurantID, nil
		}
	}
	if ref.URL != "" {
		pr, err := s.providerRefRepo.GetByProviderAndURL(ctx, tx, providerKey, ref.URL)
		if err != nil {
			return uuid.Nil, err
		}
		if pr != nil {
			return pr.RestaurantID, nil
		}
	}
	if snap.Name != "" && snap.City != "" {
		rest, err := s.restaurantRepo.GetByNameAndCity(ctx, tx, snap.Name, snap.City)
		if err != nil {
			return uuid.Nil, err
		}
		if rest != nil {
			return rest.ID, nil
		}
	}
	return uuid.Nil, nil
}

// ImportFromURL runs the single-restaurant path for a curator-supplied menu
// page, bypassing the provider listing entirely.
func (s *syncService) ImportFromURL(ctx context.Context, providerKey, menuURL string) (int, error) {
	conn, ok := s.registry.Get(providerKey)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, providerKey)
	}
	parsed, err := url.Parse(menuURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return 0, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidImport, menuURL)
	}

	resp, err := s.cache.GetOrFetch(ctx, nil, providerKey, menuURL, s.fetchTTL)
	if err != nil {
		return 0, err
	}
	if resp == nil || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: page unavailable", ErrInvalidImport)
	}
	if s.importMaxBytes > 0 && int64(len(resp.Body)) > s.importMaxBytes {
		return 0, fmt.Errorf("%w: payload of %d bytes exceeds limit of %d", ErrInvalidImport, len(resp.Body), s.importMaxBytes)
	}

	snap, err := conn.FetchMenu(ctx, connectors.ExternalRef{URL: menuURL})
	if err != nil {
		if errors.Is(err, connectors.ErrNoData) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
		return 0, err
	}
	if snap.Name == "" {
		return 0, fmt.Errorf("%w: page has no restaurant name", ErrInvalidImport)
	}
	if err := s.reconcileSnapshot(ctx, nil, providerKey, connectors.ExternalRef{URL: menuURL, Name: snap.Name}, snap); err != nil {
		return 0, err
	}
	return 1, nil
}
