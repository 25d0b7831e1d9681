package repos

import (
	"context"
	"testing"

	"github.com/platewise/platewise-backend/internal/repos/testutil"
	"github.com/platewise/platewise-backend/internal/types"
)

func TestProviderRef_DuplicateExternalIDRejected(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	repo := NewProviderRefRepo(gdb, testutil.Logger(t))

	r1 := testutil.SeedRestaurant(t, ctx, gdb, "Luigi", "Berlin")
	r2 := testutil.SeedRestaurant(t, ctx, gdb, "Mario", "Berlin")

	first := &types.ProviderRef{
		RestaurantID: r1.ID,
		ProviderKey:  "wolt",
		ExternalID:   testutil.StrPtr("abc-123"),
		URL:          "https://wolt.example/luigi",
		Status:       types.ProviderRefStatusActive,
	}
	if err := repo.Create(ctx, nil, first); err != nil {
		t.Fatalf("create first ref: %v", err)
	}

	dup := &types.ProviderRef{
		RestaurantID: r2.ID,
		ProviderKey:  "wolt",
		ExternalID:   testutil.StrPtr("abc-123"),
		URL:          "https://wolt.example/mario",
		Status:       types.ProviderRefStatusActive,
	}
	if err := repo.Create(ctx, nil, dup); err == nil {
		t.Fatalf("expected unique violation for duplicate (provider_key, external_id)")
	}
}

func TestProviderRef_DifferentExternalIDsAllowed(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	repo := NewProviderRefRepo(gdb, testutil.Logger(t))

	r := testutil.SeedRestaurant(t, ctx, gdb, "Luigi", "Berlin")

	a := &types.ProviderRef{RestaurantID: r.ID, ProviderKey: "wolt", ExternalID: testutil.StrPtr("a"), Status: types.ProviderRefStatusActive}
	b := &types.ProviderRef{RestaurantID: r.ID, ProviderKey: "wolt", ExternalID: testutil.StrPtr("b"), Status: types.ProviderRefStatusActive}
	if err := repo.Create(ctx, nil, a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := repo.Create(ctx, nil, b); err != nil {
		t.Fatalf("create b: %v", err)
	}
}

func TestProviderRef_NilExternalIDsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	repo := NewProviderRefRepo(gdb, testutil.Logger(t))

	r := testutil.SeedRestaurant(t, ctx, gdb, "Luigi", "Berlin")

	a := &types.ProviderRef{RestaurantID: r.ID, ProviderKey: "lieferando", URL: "https://l.example/1", Status: types.ProviderRefStatusActive}
	b := &types.ProviderRef{RestaurantID: r.ID, ProviderKey: "lieferando", URL: "https://l.example/2", Status: types.ProviderRefStatusActive}
	if err := repo.Create(ctx, nil, a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := repo.Create(ctx, nil, b); err != nil {
		t.Fatalf("create b with nil external_id should not collide: %v", err)
	}
}

func TestProviderRef_LookupByProviderAndExternalID(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	repo := NewProviderRefRepo(gdb, testutil.Logger(t))

	r := testutil.SeedRestaurant(t, ctx, gdb, "Luigi", "Berlin")
	testutil.SeedProviderRef(t, ctx, gdb, r.ID, "wolt", testutil.StrPtr("xyz"), "https://wolt.example/luigi")

	got, err := repo.GetByProviderAndExternalID(ctx, nil, "wolt", "xyz")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.RestaurantID != r.ID {
		t.Fatalf("expected ref for restaurant %s, got %+v", r.ID, got)
	}

	missing, err := repo.GetByProviderAndExternalID(ctx, nil, "wolt", "nope")
	if err != nil {
		t.Fatalf("lookup missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown external id, got %+v", missing)
	}
}
