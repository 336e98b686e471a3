package repository

import (
	"github.com/devportal/engine/internal/models"
	"gorm.io/gorm"
)

// Store groups the collections the lineage engine reads and writes.
type Store struct {
	Edges           LineageEdgeRepository
	Applications    ApplicationRepository
	ServiceAccounts BaseRepository[models.ServiceAccount]
	Topics          BaseRepository[models.Topic]
	Workspaces      BaseRepository[models.Workspace]
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		Edges:           NewLineageEdgeRepository(db),
		Applications:    NewApplicationRepository(db),
		ServiceAccounts: NewBaseRepository[models.ServiceAccount](db),
		Topics:          NewBaseRepository[models.Topic](db),
		Workspaces:      NewBaseRepository[models.Workspace](db),
	}
}
