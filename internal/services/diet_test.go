package services

import (
	"context"
	"reflect"
	"testing"

	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/repos/testutil"
	"github.com/platewise/platewise-backend/internal/types"
)

type dietFixture struct {
	db            *gorm.DB
	tagRepo       repos.DietTagRepo
	inferenceRepo repos.DietInferenceRepo
	overrideRepo  repos.DietOverrideRepo
	menuRepo      repos.MenuRepo
	svc           DietService
}

func newDietFixture(t *testing.T) *dietFixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	tagRepo := repos.NewDietTagRepo(gdb, log)
	inferenceRepo := repos.NewDietInferenceRepo(gdb, log)
	overrideRepo := repos.NewDietOverrideRepo(gdb, log)
	menuRepo := repos.NewMenuRepo(gdb, log)
	return &dietFixture{
		db:            gdb,
		tagRepo:       tagRepo,
		inferenceRepo: inferenceRepo,
		overrideRepo:  overrideRepo,
		menuRepo:      menuRepo,
		svc:           NewDietService(tagRepo, inferenceRepo, overrideRepo, menuRepo, log),
	}
}

func (f *dietFixture) seedMenu(t *testing.T) *types.Restaurant {
	t.Helper()
	ctx := context.Background()
	rest := testutil.SeedRestaurant(t, ctx, f.db, "Green Garden", "Berlin")
	cat := testutil.SeedCategory(t, ctx, f.db, rest.ID, "Mains", 0)

	vegan := testutil.SeedItem(t, ctx, f.db, cat.ID, "Vegan Burger", testutil.FloatPtr(9.5))
	vegan.Description = "plant-based patty"
	if err := f.menuRepo.SaveItem(ctx, nil, vegan); err != nil {
		t.Fatalf("save item: %v", err)
	}
	testutil.SeedItem(t, ctx, f.db, cat.ID, "Falafel Bowl", testutil.FloatPtr(8.0))

	cheesy := testutil.SeedItem(t, ctx, f.db, cat.ID, "Cheese Toast", testutil.FloatPtr(5.0))
	cheesy.Allergens = "milk, gluten"
	if err := f.menuRepo.SaveItem(ctx, nil, cheesy); err != nil {
		t.Fatalf("save item: %v", err)
	}
	testutil.SeedItem(t, ctx, f.db, cat.ID, "Steak Frites", testutil.FloatPtr(18.0))
	return rest
}

func TestDiet_SeedDefaultTagsIsIdempotent(t *testing.T) {
	f := newDietFixture(t)
	ctx := context.Background()

	if err := f.svc.SeedDefaultTags(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	tags, err := f.tagRepo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tags) == 0 {
		t.Fatalf("expected seeded catalog")
	}

	if err := f.svc.SeedDefaultTags(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	again, err := f.tagRepo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(again) != len(tags) {
		t.Fatalf("expected reseed to add nothing, got %d then %d", len(tags), len(again))
	}
}

func TestDiet_InferenceIsDeterministic(t *testing.T) {
	f := newDietFixture(t)
	ctx := context.Background()
	if err := f.svc.SeedDefaultTags(ctx); err != nil {
		t.Fatalf("seed tags: %v", err)
	}
	rest := f.seedMenu(t)

	if err := f.svc.InferForRestaurant(ctx, nil, rest.ID); err != nil {
		t.Fatalf("first inference: %v", err)
	}
	first, err := f.inferenceRepo.LatestByRestaurant(ctx, nil, rest.ID, DietEngineVersion)
	if err != nil {
		t.Fatalf("load results: %v", err)
	}
	if len(first) == 0 {
		t.Fatalf("expected one result per tag")
	}

	if err := f.svc.InferForRestaurant(ctx, nil, rest.ID); err != nil {
		t.Fatalf("second inference: %v", err)
	}
	second, err := f.inferenceRepo.LatestByRestaurant(ctx, nil, rest.ID, DietEngineVersion)
	if err != nil {
		t.Fatalf("load results: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected rerun to refresh in place, got %d then %d rows", len(first), len(second))
	}

	byTag := func(results []*types.DietInferenceResult) map[string][2]interface{} {
		out := map[string][2]interface{}{}
		for _, r := range results {
			out[r.DietTagID.String()] = [2]interface{}{r.Score, string(r.Reasons)}
		}
		return out
	}
	if !reflect.DeepEqual(byTag(first), byTag(second)) {
		t.Fatalf("expected identical scores and reasons on unchanged menu")
	}
}

func TestDiet_ScoresReflectMenuEvidence(t *testing.T) {
	f := newDietFixture(t)
	ctx := context.Background()
	if err := f.svc.SeedDefaultTags(ctx); err != nil {
		t.Fatalf("seed tags: %v", err)
	}
	rest := f.seedMenu(t)
	if err := f.svc.InferForRestaurant(ctx, nil, rest.ID); err != nil {
		t.Fatalf("inference: %v", err)
	}

	verdicts, err := f.svc.VerdictsForRestaurant(ctx, nil, rest.ID)
	if err != nil {
		t.Fatalf("verdicts: %v", err)
	}
	scores := map[string]DietVerdict{}
	for _, v := range verdicts {
		scores[v.TagKey] = v
	}

	vegan := scores["vegan"]
	if vegan.Score <= scores["halal"].Score {
		t.Fatalf("vegan evidence should outscore halal (none), got %v vs %v", vegan.Score, scores["halal"].Score)
	}
	if !vegan.Supported {
		t.Fatalf("two vegan matches out of four items should clear the threshold, got %+v", vegan)
	}
	if len(vegan.Reasons) == 0 {
		t.Fatalf("expected reasons on the vegan verdict")
	}
	if scores["halal"].Supported {
		t.Fatalf("no halal evidence, must not be supported: %+v", scores["halal"])
	}
}

func TestDiet_OverrideBeatsInference(t *testing.T) {
	f := newDietFixture(t)
	ctx := context.Background()
	if err := f.svc.SeedDefaultTags(ctx); err != nil {
		t.Fatalf("seed tags: %v", err)
	}
	rest := f.seedMenu(t)
	if err := f.svc.InferForRestaurant(ctx, nil, rest.ID); err != nil {
		t.Fatalf("inference: %v", err)
	}

	if err := f.svc.SetOverride(ctx, rest.ID, "vegan", false, "kitchen shares a fryer", "ops"); err != nil {
		t.Fatalf("set override: %v", err)
	}
	verdicts, err := f.svc.VerdictsForRestaurant(ctx, nil, rest.ID)
	if err != nil {
		t.Fatalf("verdicts: %v", err)
	}
	for _, v := range verdicts {
		if v.TagKey != "vegan" {
			continue
		}
		if v.Supported || !v.Overridden {
			t.Fatalf("expected override to win, got %+v", v)
		}
	}

	if err := f.svc.RemoveOverride(ctx, rest.ID, "vegan"); err != nil {
		t.Fatalf("remove override: %v", err)
	}
	verdicts, err = f.svc.VerdictsForRestaurant(ctx, nil, rest.ID)
	if err != nil {
		t.Fatalf("verdicts: %v", err)
	}
	for _, v := range verdicts {
		if v.TagKey == "vegan" && (v.Overridden || !v.Supported) {
			t.Fatalf("expected inference to apply again, got %+v", v)
		}
	}

	if err := f.svc.SetOverride(ctx, rest.ID, "nope", true, "", ""); err == nil {
		t.Fatalf("expected error for unknown tag key")
	}
}

func TestDiet_EmptyMenuScoresZero(t *testing.T) {
	f := newDietFixture(t)
	ctx := context.Background()
	if err := f.svc.SeedDefaultTags(ctx); err != nil {
		t.Fatalf("seed tags: %v", err)
	}
	rest := testutil.SeedRestaurant(t, ctx, f.db, "Empty Place", "Berlin")

	if err := f.svc.InferForRestaurant(ctx, nil, rest.ID); err != nil {
		t.Fatalf("inference: %v", err)
	}
	results, err := f.inferenceRepo.LatestByRestaurant(ctx, nil, rest.ID, DietEngineVersion)
	if err != nil {
		t.Fatalf("load results: %v", err)
	}
	for _, r := range results {
		if r.Score != 0 || r.Confidence != types.ConfidenceLow {
			t.Fatalf("expected zero score and low confidence, got %+v", r)
		}
	}
}
