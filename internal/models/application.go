package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApplicationStatus is the persisted status of an application record.
type ApplicationStatus string

const (
	ApplicationActive          ApplicationStatus = "active"
	ApplicationDecommissioning ApplicationStatus = "decommissioning"
	ApplicationDeleted         ApplicationStatus = "deleted"
)

// Application is a deployable unit inside a workspace. It owns service
// accounts and, optionally, topics.
type Application struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string            `gorm:"not null" json:"name" validate:"required"`
	WorkspaceID  uuid.UUID         `gorm:"type:uuid;index;not null" json:"workspace_id" validate:"required"`
	Workspace    *Workspace        `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Status       ApplicationStatus `gorm:"type:varchar(32);index;not null;default:active" json:"status" validate:"required,oneof=active decommissioning deleted"`
	Environments datatypes.JSON    `gorm:"type:jsonb" json:"environments"`

	DecommissioningStartedAt *time.Time `json:"decommissioning_started_at,omitempty"`
	GracePeriodEndsAt        *time.Time `gorm:"index" json:"grace_period_ends_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	if a.Status == "" {
		a.Status = ApplicationActive
	}
	return nil
}

// EnvironmentNames decodes the environments the application is deployed to.
// A malformed column reads as no environments.
func (a *Application) EnvironmentNames() []string {
	if len(a.Environments) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(a.Environments, &out); err != nil {
		return nil
	}
	return out
}

// SetEnvironments encodes the environment list into the JSON column.
func (a *Application) SetEnvironments(envs []string) {
	if envs == nil {
		envs = []string{}
	}
	b, _ := json.Marshal(envs)
	a.Environments = datatypes.JSON(b)
}
