package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderCredential holds one provider API secret, sealed with the
// credential box before it ever reaches the database.
type ProviderCredential struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderKey     string    `gorm:"column:provider_key;not null;uniqueIndex" json:"provider_key"`
	Label           string    `gorm:"column:label" json:"label,omitempty"`
	EncryptedSecret []byte    `gorm:"column:encrypted_secret;not null" json:"-"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (ProviderCredential) TableName() string { return "provider_credential" }

func (c *ProviderCredential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
