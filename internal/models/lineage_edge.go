package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Direction is the data-flow direction of a lineage edge relative to the topic.
type Direction string

const (
	DirectionProduce Direction = "produce"
	DirectionConsume Direction = "consume"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionProduce || d == DirectionConsume
}

// LineageEdge records observed traffic for one
// (source service account, topic, direction) tuple. The tuple is unique.
type LineageEdge struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SourceServiceAccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lineage_edge_key,priority:1" json:"source_service_account_id"`
	TopicID                uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lineage_edge_key,priority:2;index" json:"topic_id"`
	Direction              Direction `gorm:"type:varchar(16);not null;uniqueIndex:idx_lineage_edge_key,priority:3" json:"direction"`

	SourceApplicationID *uuid.UUID `gorm:"type:uuid;index" json:"source_application_id,omitempty"`
	SourceWorkspaceID   *uuid.UUID `gorm:"type:uuid;index" json:"source_workspace_id,omitempty"`
	TargetApplicationID *uuid.UUID `gorm:"type:uuid;index" json:"target_application_id,omitempty"`
	TargetWorkspaceID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"target_workspace_id"`

	BytesLast24h    int64 `gorm:"column:bytes_last_24h;not null;default:0" json:"bytes_last_24h"`
	MessagesLast24h int64 `gorm:"column:messages_last_24h;not null;default:0" json:"messages_last_24h"`
	BytesAllTime    int64 `gorm:"column:bytes_all_time;not null;default:0" json:"bytes_all_time"`
	MessagesAllTime int64 `gorm:"column:messages_all_time;not null;default:0" json:"messages_all_time"`

	FirstSeen        time.Time `gorm:"not null" json:"first_seen"`
	LastSeen         time.Time `gorm:"not null;index" json:"last_seen"`
	IsActive         bool      `gorm:"not null;index" json:"is_active"`
	IsCrossWorkspace bool      `gorm:"not null;index" json:"is_cross_workspace"`

	SourceServiceAccount *ServiceAccount `gorm:"foreignKey:SourceServiceAccountID" json:"source_service_account,omitempty"`
	Topic                *Topic          `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	SourceApplication    *Application    `gorm:"foreignKey:SourceApplicationID" json:"source_application,omitempty"`
	TargetApplication    *Application    `gorm:"foreignKey:TargetApplicationID" json:"target_application,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lineage edge associations that can be preloaded.
const (
	EdgeSourceServiceAccount = "SourceServiceAccount"
	EdgeTopic                = "Topic"
	EdgeSourceApplication    = "SourceApplication"
	EdgeTargetApplication    = "TargetApplication"
)

func (e *LineageEdge) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (e *LineageEdge) ServiceAccountRef() Ref[ServiceAccount] {
	return RefOf(e.SourceServiceAccountID, e.SourceServiceAccount)
}

func (e *LineageEdge) TopicRef() Ref[Topic] {
	return RefOf(e.TopicID, e.Topic)
}

func (e *LineageEdge) SourceApplicationRef() (Ref[Application], bool) {
	return OptionalRef(e.SourceApplicationID, e.SourceApplication)
}

func (e *LineageEdge) TargetApplicationRef() (Ref[Application], bool) {
	return OptionalRef(e.TargetApplicationID, e.TargetApplication)
}
