package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/repos/testutil"
	"github.com/platewise/platewise-backend/internal/types"
)

type alertFixture struct {
	db            *gorm.DB
	alertRepo     repos.SyncAlertRepo
	overrideRepo  repos.DietOverrideRepo
	inferenceRepo repos.DietInferenceRepo
	svc           AlertService
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	alertRepo := repos.NewSyncAlertRepo(gdb, log)
	overrideRepo := repos.NewDietOverrideRepo(gdb, log)
	inferenceRepo := repos.NewDietInferenceRepo(gdb, log)
	return &alertFixture{
		db:            gdb,
		alertRepo:     alertRepo,
		overrideRepo:  overrideRepo,
		inferenceRepo: inferenceRepo,
		svc:           NewAlertService(alertRepo, overrideRepo, inferenceRepo, log),
	}
}

func TestAlerts_RestaurantGoneDedupesWhileActive(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	rest := testutil.SeedRestaurant(t, ctx, f.db, "Trattoria Roma", "Berlin")

	raised, err := f.svc.RaiseRestaurantGone(ctx, nil, rest.ID, "wolt")
	if err != nil || !raised {
		t.Fatalf("first raise: raised=%v err=%v", raised, err)
	}
	raised, err = f.svc.RaiseRestaurantGone(ctx, nil, rest.ID, "wolt")
	if err != nil {
		t.Fatalf("second raise: %v", err)
	}
	if raised {
		t.Fatalf("expected active alert to suppress the duplicate")
	}

	alerts, err := f.svc.List(ctx, repos.AlertFilter{Type: types.AlertTypeRestaurantGone}, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 active alert, got %d", len(alerts))
	}

	// Dismissal reopens the path for the condition seen again later.
	if ok, err := f.svc.Dismiss(ctx, alerts[0].ID); err != nil || !ok {
		t.Fatalf("dismiss: ok=%v err=%v", ok, err)
	}
	raised, err = f.svc.RaiseRestaurantGone(ctx, nil, rest.ID, "wolt")
	if err != nil || !raised {
		t.Fatalf("raise after dismissal: raised=%v err=%v", raised, err)
	}
}

func TestAlerts_GoneOnOneProviderDoesNotSuppressAnother(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	rest := testutil.SeedRestaurant(t, ctx, f.db, "Trattoria Roma", "Berlin")

	if raised, err := f.svc.RaiseRestaurantGone(ctx, nil, rest.ID, "wolt"); err != nil || !raised {
		t.Fatalf("wolt raise: raised=%v err=%v", raised, err)
	}
	if raised, err := f.svc.RaiseRestaurantGone(ctx, nil, rest.ID, "lieferando"); err != nil || !raised {
		t.Fatalf("lieferando raise: raised=%v err=%v", raised, err)
	}
}

func TestAlerts_OverrideStalenessOnDisagreement(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	rest := testutil.SeedRestaurant(t, ctx, f.db, "Trattoria Roma", "Berlin")
	tag := testutil.SeedDietTag(t, ctx, f.db, "vegan", "Vegan", []string{"vegan"}, nil)

	// Curator says vegan is supported.
	if err := f.overrideRepo.Upsert(ctx, nil, &types.DietManualOverride{
		RestaurantID: rest.ID,
		DietTagID:    tag.ID,
		Supported:    true,
	}); err != nil {
		t.Fatalf("seed override: %v", err)
	}

	// No newer inference yet, nothing to flag.
	n, err := f.svc.CheckOverrideStaleness(ctx, nil, rest.ID, "wolt", false)
	if err != nil {
		t.Fatalf("staleness check: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no alerts without disagreement, got %d", n)
	}

	// A newer inference disagreeing with the curator makes it stale.
	if err := f.inferenceRepo.Create(ctx, nil, &types.DietInferenceResult{
		RestaurantID:  rest.ID,
		DietTagID:     tag.ID,
		EngineVersion: DietEngineVersion,
		Score:         0.1,
		Confidence:    types.ConfidenceMedium,
		Reasons:       testutil.JSONList(t, []string{"no evidence"}),
		ComputedAt:    time.Now().UTC().Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed inference: %v", err)
	}
	n, err = f.svc.CheckOverrideStaleness(ctx, nil, rest.ID, "wolt", false)
	if err != nil {
		t.Fatalf("staleness check: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 staleness alert, got %d", n)
	}

	// Still active, so the next check stays quiet.
	n, err = f.svc.CheckOverrideStaleness(ctx, nil, rest.ID, "wolt", true)
	if err != nil {
		t.Fatalf("repeat staleness check: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected active alert to suppress duplicates, got %d", n)
	}
}

func TestAlerts_MenuChangeMarksOverridesStale(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	rest := testutil.SeedRestaurant(t, ctx, f.db, "Trattoria Roma", "Berlin")
	tag := testutil.SeedDietTag(t, ctx, f.db, "vegan", "Vegan", []string{"vegan"}, nil)

	if err := f.overrideRepo.Upsert(ctx, nil, &types.DietManualOverride{
		RestaurantID: rest.ID,
		DietTagID:    tag.ID,
		Supported:    false,
	}); err != nil {
		t.Fatalf("seed override: %v", err)
	}

	n, err := f.svc.CheckOverrideStaleness(ctx, nil, rest.ID, "wolt", true)
	if err != nil {
		t.Fatalf("staleness check: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected menu change to flag the override, got %d", n)
	}
}

func TestAlerts_MenuChangedOnlyWhenMaterial(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	rest := testutil.SeedRestaurant(t, ctx, f.db, "Trattoria Roma", "Berlin")

	raised, err := f.svc.RaiseMenuChanged(ctx, nil, rest.ID, "wolt", MenuDiff{})
	if err != nil {
		t.Fatalf("empty diff: %v", err)
	}
	if raised {
		t.Fatalf("empty diff must not raise")
	}

	raised, err = f.svc.RaiseMenuChanged(ctx, nil, rest.ID, "wolt", MenuDiff{AddedItems: []string{"tiramisu"}})
	if err != nil || !raised {
		t.Fatalf("material diff: raised=%v err=%v", raised, err)
	}
}
