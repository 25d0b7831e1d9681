package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AlertTypeRestaurantGone    = "restaurant_gone"
	AlertTypeMenuChanged       = "menu_changed"
	AlertTypeDietOverrideStale = "diet_override_stale"
)

// SyncAlert is intentionally not unique-constrained: the same condition seen
// on two different days may coexist once the earlier alert is dismissed.
// Dedup against active alerts is an application-level check.
type SyncAlert struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	ProviderKey  string    `gorm:"column:provider_key;index" json:"provider_key"`
	Type         string    `gorm:"column:type;not null;index" json:"type"`
	Message      string    `gorm:"column:message;not null" json:"message"`
	Dismissed    bool      `gorm:"column:dismissed;not null;default:false;index" json:"dismissed"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (SyncAlert) TableName() string { return "sync_alert" }

func (a *SyncAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
