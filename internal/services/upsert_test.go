package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/connectors"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/repos/testutil"
	"github.com/platewise/platewise-backend/internal/types"
)

type upsertFixture struct {
	db             *gorm.DB
	restaurantRepo repos.RestaurantRepo
	refRepo        repos.ProviderRefRepo
	menuRepo       repos.MenuRepo
	svc            UpsertService
}

func newUpsertFixture(t *testing.T) *upsertFixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	restaurantRepo := repos.NewRestaurantRepo(gdb, log)
	refRepo := repos.NewProviderRefRepo(gdb, log)
	menuRepo := repos.NewMenuRepo(gdb, log)
	return &upsertFixture{
		db:             gdb,
		restaurantRepo: restaurantRepo,
		refRepo:        refRepo,
		menuRepo:       menuRepo,
		svc:            NewUpsertService(restaurantRepo, refRepo, menuRepo, log),
	}
}

func sampleSnapshot() *connectors.Snapshot {
	price := 8.5
	side := 3.0
	return &connectors.Snapshot{
		Name:         "Trattoria Roma",
		AddressLine1: "Hauptstr. 12",
		City:         "Berlin",
		PostalCode:   "10827",
		Cuisines:     []string{"italian", "pizza"},
		Categories: []connectors.SnapshotCategory{
			{Name: "Pizza", SortOrder: 0, Items: []connectors.SnapshotItem{
				{Name: "Margherita", Price: &price, Currency: "EUR", SortOrder: 0},
				{Name: "Focaccia", Price: &side, Currency: "EUR", SortOrder: 1},
			}},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestUpsert_IdenticalSnapshotIsIdempotent(t *testing.T) {
	f := newUpsertFixture(t)
	ctx := context.Background()
	ref := connectors.ExternalRef{ExternalID: "r1", Name: "Trattoria Roma", URL: "https://example.test/roma"}

	rest, created, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, sampleSnapshot())
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Fatalf("expected first upsert to create the restaurant")
	}

	again, created, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, sampleSnapshot())
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatalf("expected second upsert to reuse the restaurant")
	}
	if again.ID != rest.ID {
		t.Fatalf("expected same restaurant, got %s and %s", rest.ID, again.ID)
	}

	if n := countRows(t, f.db, &types.Restaurant{}); n != 1 {
		t.Fatalf("expected 1 restaurant, got %d", n)
	}
	if n := countRows(t, f.db, &types.MenuCategory{}); n != 1 {
		t.Fatalf("expected 1 category, got %d", n)
	}
	if n := countRows(t, f.db, &types.MenuItem{}); n != 2 {
		t.Fatalf("expected 2 items, got %d", n)
	}
	if n := countRows(t, f.db, &types.ProviderRef{}); n != 1 {
		t.Fatalf("expected 1 provider ref, got %d", n)
	}

	items, err := f.menuRepo.ListItems(ctx, nil, mustOneCategory(t, f, rest).ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, i := range items {
		if !i.IsActive {
			t.Fatalf("expected item %q to stay active", i.Name)
		}
	}
}

func mustOneCategory(t *testing.T, f *upsertFixture, rest *types.Restaurant) *types.MenuCategory {
	t.Helper()
	cats, err := f.menuRepo.ListCategories(context.Background(), nil, rest.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}
	return cats[0]
}

func TestUpsert_MissingItemIsDeactivatedNotDeleted(t *testing.T) {
	f := newUpsertFixture(t)
	ctx := context.Background()
	ref := connectors.ExternalRef{ExternalID: "r1", Name: "Trattoria Roma", URL: "https://example.test/roma"}

	rest, _, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, sampleSnapshot())
	if err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	trimmed := sampleSnapshot()
	trimmed.Categories[0].Items = trimmed.Categories[0].Items[:1]
	if _, _, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, trimmed); err != nil {
		t.Fatalf("trimmed upsert: %v", err)
	}

	if n := countRows(t, f.db, &types.MenuItem{}); n != 2 {
		t.Fatalf("expected both item rows retained, got %d", n)
	}
	items, err := f.menuRepo.ListItems(ctx, nil, mustOneCategory(t, f, rest).ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, i := range items {
		switch i.Name {
		case "Margherita":
			if !i.IsActive {
				t.Fatalf("expected Margherita to stay active")
			}
		case "Focaccia":
			if i.IsActive {
				t.Fatalf("expected Focaccia to be deactivated")
			}
		default:
			t.Fatalf("unexpected item %q", i.Name)
		}
	}

	// The item returns next cycle and flips back on the same row.
	if _, _, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, sampleSnapshot()); err != nil {
		t.Fatalf("restore upsert: %v", err)
	}
	if n := countRows(t, f.db, &types.MenuItem{}); n != 2 {
		t.Fatalf("expected reactivation to reuse the row, got %d rows", n)
	}
}

func TestUpsert_MatchesByNameCaseInsensitively(t *testing.T) {
	f := newUpsertFixture(t)
	ctx := context.Background()
	ref := connectors.ExternalRef{ExternalID: "r1", Name: "Trattoria Roma", URL: "https://example.test/roma"}

	if _, _, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, sampleSnapshot()); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	recased := sampleSnapshot()
	recased.Categories[0].Name = "PIZZA"
	recased.Categories[0].Items[0].Name = "MARGHERITA"
	recased.Categories[0].Items[0].Description = "Tomate, Mozzarella"
	if _, _, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, recased); err != nil {
		t.Fatalf("recased upsert: %v", err)
	}

	if n := countRows(t, f.db, &types.MenuCategory{}); n != 1 {
		t.Fatalf("expected recased category to match, got %d rows", n)
	}
	if n := countRows(t, f.db, &types.MenuItem{}); n != 2 {
		t.Fatalf("expected recased item to match, got %d rows", n)
	}

	var item types.MenuItem
	if err := f.db.Where("LOWER(name) = ?", "margherita").First(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.Name != "MARGHERITA" || item.Description != "Tomate, Mozzarella" {
		t.Fatalf("expected in-place update with new casing, got %+v", item)
	}
}

func TestUpsert_DuplicateIncomingNamesLastWriteWins(t *testing.T) {
	f := newUpsertFixture(t)
	ctx := context.Background()
	ref := connectors.ExternalRef{ExternalID: "r1", Name: "Trattoria Roma", URL: "https://example.test/roma"}

	first := 7.0
	second := 9.0
	snap := sampleSnapshot()
	snap.Categories[0].Items = []connectors.SnapshotItem{
		{Name: "Margherita", Price: &first, Currency: "EUR", SortOrder: 0},
		{Name: "margherita", Price: &second, Currency: "EUR", SortOrder: 1},
	}
	if _, _, err := f.svc.UpsertSnapshot(ctx, nil, "wolt", ref, snap); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if n := countRows(t, f.db, &types.MenuItem{}); n != 1 {
		t.Fatalf("expected duplicates collapsed to one row, got %d", n)
	}
	var item types.MenuItem
	if err := f.db.First(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.Price == nil || *item.Price != second {
		t.Fatalf("expected last occurrence to win, got %+v", item.Price)
	}
}

func TestUpsert_AdoptsExistingRestaurantByNameAndCity(t *testing.T) {
	f := newUpsertFixture(t)
	ctx := context.Background()

	seeded := testutil.SeedRestaurant(t, ctx, f.db, "Trattoria Roma", "Berlin")

	ref := connectors.ExternalRef{ExternalID: "x9", Name: "Trattoria Roma", URL: "https://example.test/roma"}
	rest, created, err := f.svc.UpsertSnapshot(ctx, nil, "lieferando", ref, sampleSnapshot())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created || rest.ID != seeded.ID {
		t.Fatalf("expected match on name+city, created=%v id=%s", created, rest.ID)
	}

	refs, err := f.refRepo.ListByRestaurant(ctx, nil, seeded.ID)
	if err != nil {
		t.Fatalf("list refs: %v", err)
	}
	if len(refs) != 1 || refs[0].ProviderKey != "lieferando" {
		t.Fatalf("expected new lieferando ref attached, got %+v", refs)
	}
}
