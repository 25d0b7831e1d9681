package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/types"
)

// DietEngineVersion stamps every inference result. Bump it whenever the
// scoring heuristic changes so old rows stay readable as history.
const DietEngineVersion = 2

// SupportedThreshold is the score at or above which a diet counts as
// supported when no manual override exists.
const SupportedThreshold = 0.5

//go:embed diet_seed.yaml
var dietSeedYAML []byte

type dietSeed struct {
	Key               string   `yaml:"key"`
	Label             string   `yaml:"label"`
	Keywords          []string `yaml:"keywords"`
	Dishes            []string `yaml:"dishes"`
	ExcludedAllergens []string `yaml:"excluded_allergens"`
}

// DietVerdict is the effective answer for one restaurant/tag pair after
// override precedence is applied.
type DietVerdict struct {
	TagKey     string   `json:"tag_key"`
	TagLabel   string   `json:"tag_label"`
	Supported  bool     `json:"supported"`
	Score      float64  `json:"score"`
	Confidence string   `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
	Overridden bool     `json:"overridden"`
}

type DietService interface {
	SeedDefaultTags(ctx context.Context) error
	InferForRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) error
	VerdictsForRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]DietVerdict, error)
	SetOverride(ctx context.Context, restaurantID uuid.UUID, tagKey string, supported bool, notes, createdBy string) error
	RemoveOverride(ctx context.Context, restaurantID uuid.UUID, tagKey string) error
}

type dietService struct {
	tagRepo       repos.DietTagRepo
	inferenceRepo repos.DietInferenceRepo
	overrideRepo  repos.DietOverrideRepo
	menuRepo      repos.MenuRepo
	log           *logger.Logger
}

func NewDietService(
	tagRepo repos.DietTagRepo,
	inferenceRepo repos.DietInferenceRepo,
	overrideRepo repos.DietOverrideRepo,
	menuRepo repos.MenuRepo,
	baseLog *logger.Logger,
) DietService {
	return &dietService{
		tagRepo:       tagRepo,
		inferenceRepo: inferenceRepo,
		overrideRepo:  overrideRepo,
		menuRepo:      menuRepo,
		log:           baseLog.With("service", "DietService"),
	}
}

// SeedDefaultTags inserts the embedded catalog entries that do not exist
// yet. Existing rows are left alone so curator edits survive restarts.
func (s *dietService) SeedDefaultTags(ctx context.Context) error {
	var seeds []dietSeed
	if err := yaml.Unmarshal(dietSeedYAML, &seeds); err != nil {
		return fmt.Errorf("diet seed catalog: %w", err)
	}
	for _, seed := range seeds {
		existing, err := s.tagRepo.GetByKey(ctx, nil, seed.Key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		tag := &types.DietTag{
			Key:               seed.Key,
			Label:             seed.Label,
			Keywords:          mustJSONList(seed.Keywords),
			DishWhitelist:     mustJSONList(seed.Dishes),
			ExcludedAllergens: mustJSONList(seed.ExcludedAllergens),
		}
		if err := s.tagRepo.Create(ctx, nil, tag); err != nil {
			return err
		}
		s.log.Info("seeded diet tag", "key", seed.Key)
	}
	return nil
}

func mustJSONList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return datatypes.JSON(b)
}

func jsonList(raw datatypes.JSON) []string {
	var out []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// menuEvidence is the text the heuristic scans, one entry per active item.
type menuEvidence struct {
	name      string
	text      string
	allergens string
}

func (s *dietService) collectEvidence(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]menuEvidence, error) {
	cats, err := s.menuRepo.ListCategoriesWithItems(ctx, tx, restaurantID)
	if err != nil {
		return nil, err
	}
	var out []menuEvidence
	for _, c := range cats {
		if !c.IsActive {
			continue
		}
		for _, i := range c.Items {
			if !i.IsActive {
				continue
			}
			out = append(out, menuEvidence{
				name:      strings.ToLower(i.Name),
				text:      strings.ToLower(i.Name + " " + i.Description + " " + i.DietNotes),
				allergens: strings.ToLower(i.Allergens),
			})
		}
	}
	return out, nil
}

// InferForRestaurant recomputes the score for every catalog tag from the
// restaurant's active menu and upserts one result row per tag under the
// current engine version. The heuristic is pure string matching over item
// names, descriptions and allergen lists, so rerunning it on an unchanged
// menu is a no-op.
func (s *dietService) InferForRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) error {
	tags, err := s.tagRepo.List(ctx, tx)
	if err != nil {
		return err
	}
	evidence, err := s.collectEvidence(ctx, tx, restaurantID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, tag := range tags {
		score, confidence, reasons := scoreTag(tag, evidence)
		res := &types.DietInferenceResult{
			RestaurantID:  restaurantID,
			DietTagID:     tag.ID,
			EngineVersion: DietEngineVersion,
			Score:         score,
			Confidence:    confidence,
			Reasons:       mustJSONList(reasons),
			ComputedAt:    now,
		}
		if err := s.inferenceRepo.Create(ctx, tx, res); err != nil {
			return err
		}
	}
	return nil
}

// scoreTag turns match counts into a score in [0, 1]. Keyword and whitelist
// hits push the score up in proportion to how much of the menu they cover;
// items carrying an excluded allergen pull it down at half weight.
func scoreTag(tag *types.DietTag, evidence []menuEvidence) (float64, string, []string) {
	total := len(evidence)
	if total == 0 {
		return 0, types.ConfidenceLow, []string{"no active menu items"}
	}

	keywords := jsonList(tag.Keywords)
	dishes := jsonList(tag.DishWhitelist)
	excluded := jsonList(tag.ExcludedAllergens)

	var reasons []string
	matchedItems := map[string]bool{}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		n := 0
		for _, ev := range evidence {
			if strings.Contains(ev.text, kw) {
				matchedItems[ev.name] = true
				n++
			}
		}
		if n > 0 {
			reasons = append(reasons, fmt.Sprintf("keyword %q matched %d item(s)", kw, n))
		}
	}
	for _, dish := range dishes {
		dish = strings.ToLower(strings.TrimSpace(dish))
		if dish == "" {
			continue
		}
		n := 0
		for _, ev := range evidence {
			if strings.Contains(ev.name, dish) {
				matchedItems[ev.name] = true
				n++
			}
		}
		if n > 0 {
			reasons = append(reasons, fmt.Sprintf("dish %q matched %d item(s)", dish, n))
		}
	}

	conflictItems := map[string]bool{}
	for _, allergen := range excluded {
		allergen = strings.ToLower(strings.TrimSpace(allergen))
		if allergen == "" {
			continue
		}
		n := 0
		for _, ev := range evidence {
			if strings.Contains(ev.allergens, allergen) {
				conflictItems[ev.name] = true
				n++
			}
		}
		if n > 0 {
			reasons = append(reasons, fmt.Sprintf("allergen %q present in %d item(s)", allergen, n))
		}
	}

	matchRatio := float64(len(matchedItems)) / float64(total)
	conflictRatio := float64(len(conflictItems)) / float64(total)
	score := 1.5*matchRatio - 0.75*conflictRatio
	score = math.Round(math.Min(1, math.Max(0, score))*1000) / 1000

	evidenceCount := len(matchedItems) + len(conflictItems)
	confidence := types.ConfidenceLow
	switch {
	case matchRatio >= 0.5 || evidenceCount >= 8:
		confidence = types.ConfidenceHigh
	case evidenceCount >= 3:
		confidence = types.ConfidenceMedium
	}
	if len(reasons) == 0 {
		reasons = []string{"no keyword, dish or allergen evidence found"}
	}
	return score, confidence, reasons
}

// VerdictsForRestaurant merges the latest inference results with manual
// overrides, override winning per tag.
func (s *dietService) VerdictsForRestaurant(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID) ([]DietVerdict, error) {
	tags, err := s.tagRepo.List(ctx, tx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.overrideRepo.ListByRestaurant(ctx, tx, restaurantID)
	if err != nil {
		return nil, err
	}
	overrideByTag := map[uuid.UUID]*types.DietManualOverride{}
	for _, o := range overrides {
		overrideByTag[o.DietTagID] = o
	}

	var out []DietVerdict
	for _, tag := range tags {
		v := DietVerdict{TagKey: tag.Key, TagLabel: tag.Label, Confidence: types.ConfidenceLow}
		latest, err := s.inferenceRepo.Latest(ctx, tx, restaurantID, tag.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			v.Score = latest.Score
			v.Confidence = latest.Confidence
			v.Reasons = jsonList(latest.Reasons)
			v.Supported = latest.Score >= SupportedThreshold
		}
		if o := overrideByTag[tag.ID]; o != nil {
			v.Supported = o.Supported
			v.Overridden = true
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *dietService) SetOverride(ctx context.Context, restaurantID uuid.UUID, tagKey string, supported bool, notes, createdBy string) error {
	tag, err := s.tagRepo.GetByKey(ctx, nil, tagKey)
	if err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("unknown diet tag %q", tagKey)
	}
	o := &types.DietManualOverride{
		RestaurantID: restaurantID,
		DietTagID:    tag.ID,
		Supported:    supported,
		Notes:        notes,
		CreatedBy:    createdBy,
	}
	return s.overrideRepo.Upsert(ctx, nil, o)
}

func (s *dietService) RemoveOverride(ctx context.Context, restaurantID uuid.UUID, tagKey string) error {
	tag, err := s.tagRepo.GetByKey(ctx, nil, tagKey)
	if err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("unknown diet tag %q", tagKey)
	}
	return s.overrideRepo.Delete(ctx, nil, restaurantID, tag.ID)
}
