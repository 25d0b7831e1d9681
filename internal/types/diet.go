package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// DietTag is a catalog entity; defaults are seeded at startup when missing.
type DietTag struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Key               string         `gorm:"column:key;not null;uniqueIndex" json:"key"`
	Label             string         `gorm:"column:label;not null" json:"label"`
	Keywords          datatypes.JSON `gorm:"column:keywords;type:jsonb" json:"keywords"`
	DishWhitelist     datatypes.JSON `gorm:"column:dish_whitelist;type:jsonb" json:"dish_whitelist"`
	ExcludedAllergens datatypes.JSON `gorm:"column:excluded_allergens;type:jsonb" json:"excluded_allergens"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (DietTag) TableName() string { return "diet_tag" }

func (t *DietTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// DietInferenceResult is append-only per engine version: a heuristic upgrade
// writes new rows under the new version instead of overwriting history.
type DietInferenceResult struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_diet_inference_rest_tag_ver" json:"restaurant_id"`
	DietTagID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_diet_inference_rest_tag_ver" json:"diet_tag_id"`
	EngineVersion int            `gorm:"column:engine_version;not null;uniqueIndex:idx_diet_inference_rest_tag_ver" json:"engine_version"`
	Score         float64        `gorm:"column:score;not null" json:"score"`
	Confidence    string         `gorm:"column:confidence;not null" json:"confidence"`
	Reasons       datatypes.JSON `gorm:"column:reasons;type:jsonb" json:"reasons"`
	ComputedAt    time.Time      `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (DietInferenceResult) TableName() string { return "diet_inference_result" }

func (r *DietInferenceResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// DietManualOverride takes precedence over inference for the same
// restaurant/tag pair.
type DietManualOverride struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_diet_override_rest_tag" json:"restaurant_id"`
	DietTagID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_diet_override_rest_tag" json:"diet_tag_id"`
	Supported    bool      `gorm:"column:supported;not null" json:"supported"`
	Notes        string    `gorm:"column:notes" json:"notes,omitempty"`
	CreatedBy    string    `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (DietManualOverride) TableName() string { return "diet_manual_override" }

func (o *DietManualOverride) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
