package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceAccount is the broker identity an application connects with.
// It belongs to an application; its workspace is the application's.
type ServiceAccount struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string       `gorm:"not null" json:"name" validate:"required"`
	ApplicationID *uuid.UUID   `gorm:"type:uuid;index" json:"application_id,omitempty"`
	Application   *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (s *ServiceAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
