package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CuisineSourceProvider = "provider"
	CuisineSourceManual   = "manual"
)

type Restaurant struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string              `gorm:"column:name;not null;index" json:"name"`
	AddressLine1 string              `gorm:"column:address_line1" json:"address_line1"`
	AddressLine2 string              `gorm:"column:address_line2" json:"address_line2,omitempty"`
	City         string              `gorm:"column:city;index" json:"city"`
	PostalCode   string              `gorm:"column:postal_code" json:"postal_code"`
	Country      string              `gorm:"column:country" json:"country,omitempty"`
	OpeningHours string              `gorm:"column:opening_hours" json:"opening_hours,omitempty"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	Cuisines     []RestaurantCuisine `gorm:"foreignKey:RestaurantID;references:ID" json:"cuisines,omitempty"`
	ProviderRefs []ProviderRef       `gorm:"foreignKey:RestaurantID;references:ID" json:"provider_refs,omitempty"`
	Categories   []MenuCategory      `gorm:"foreignKey:RestaurantID;references:ID" json:"categories,omitempty"`
	CreatedAt    time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"not null" json:"updated_at"`
}

func (Restaurant) TableName() string { return "restaurant" }

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RestaurantCuisine is one cuisine value attached to a restaurant, tagged by
// where it came from. Provider-sourced rows are replaced wholesale on sync;
// manual rows are never touched by the pipeline.
type RestaurantCuisine struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cuisine_rest_value_source" json:"restaurant_id"`
	Value        string    `gorm:"column:value;not null;uniqueIndex:idx_cuisine_rest_value_source" json:"value"`
	Source       string    `gorm:"column:source;not null;uniqueIndex:idx_cuisine_rest_value_source" json:"source"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (RestaurantCuisine) TableName() string { return "restaurant_cuisine" }

func (c *RestaurantCuisine) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
