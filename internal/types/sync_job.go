package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SyncJobStatusPending   = "pending"
	SyncJobStatusRunning   = "running"
	SyncJobStatusCompleted = "completed"
	SyncJobStatusFailed    = "failed"
)

const (
	SyncJobKindSync   = "sync"
	SyncJobKindImport = "import"
)

// SyncJob is the durable audit trail of one sync/import attempt. Rows are
// append-mostly and mutated only by the job executing them.
type SyncJob struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Kind              string     `gorm:"column:kind;not null;default:sync" json:"kind"`
	ProviderKey       *string    `gorm:"column:provider_key;index" json:"provider_key,omitempty"`
	Status            string     `gorm:"column:status;not null;default:pending;index" json:"status"`
	Query             string     `gorm:"column:query" json:"query,omitempty"`
	ImportURL         string     `gorm:"column:import_url" json:"import_url,omitempty"`
	RestaurantsSynced int        `gorm:"column:restaurants_synced;not null;default:0" json:"restaurants_synced"`
	ErrorMessage      string     `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt         *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt        *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt         time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

func (SyncJob) TableName() string { return "sync_job" }

func (j *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
