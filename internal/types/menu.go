package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MenuCategory struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID  `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Name         string     `gorm:"column:name;not null" json:"name"`
	SortOrder    int        `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Items        []MenuItem `gorm:"foreignKey:CategoryID;references:ID" json:"items,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (MenuCategory) TableName() string { return "menu_category" }

func (c *MenuCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// MenuItem rows are never hard-deleted by sync; reconciliation flips
// is_active instead so alerts and inference results stay referentially valid.
type MenuItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID  uuid.UUID `gorm:"type:uuid;not null;index" json:"category_id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Price       *float64  `gorm:"column:price" json:"price,omitempty"`
	Currency    string    `gorm:"column:currency" json:"currency,omitempty"`
	DietNotes   string    `gorm:"column:diet_notes" json:"diet_notes,omitempty"`
	Allergens   string    `gorm:"column:allergens" json:"allergens,omitempty"`
	SortOrder   int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (MenuItem) TableName() string { return "menu_item" }

func (i *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
