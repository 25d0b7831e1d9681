package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProviderRefStatusActive = "active"
	ProviderRefStatusGone   = "gone"
)

// ProviderRef binds a restaurant to one external provider listing.
// (provider_key, external_id) is unique when external_id is present; NULL
// external_ids never collide with each other (NULLs are distinct in the
// unique index on both postgres and sqlite).
type ProviderRef struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID  `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	ProviderKey  string     `gorm:"column:provider_key;not null;index;uniqueIndex:idx_provider_ref_key_ext" json:"provider_key"`
	ExternalID   *string    `gorm:"column:external_id;uniqueIndex:idx_provider_ref_key_ext" json:"external_id,omitempty"`
	URL          string     `gorm:"column:url" json:"url"`
	Status       string     `gorm:"column:status;not null;default:active" json:"status"`
	LastSyncAt   *time.Time `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (ProviderRef) TableName() string { return "provider_ref" }

func (p *ProviderRef) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
