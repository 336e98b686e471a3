package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Topic is a broker topic. The workspace is always known, the owning
// application is not (shared or legacy topics).
type Topic struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string       `gorm:"not null;index" json:"name" validate:"required"`
	ApplicationID *uuid.UUID   `gorm:"type:uuid;index" json:"application_id,omitempty"`
	Application   *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	WorkspaceID   *uuid.UUID   `gorm:"type:uuid;index" json:"workspace_id,omitempty"`
	Workspace     *Workspace   `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (t *Topic) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
