//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("lineage"),
		postgres.WithUsername("lineage"),
		postgres.WithPassword("lineage"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, database.Options{Driver: database.DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestPostgresAccumulateIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openPostgres(t))
	edge := seedEdge(t, store, nil)

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				assert.NoError(t, store.Edges.Accumulate(ctx, edge.ID, EdgeDelta{
					Bytes: 10, Messages: 1, SeenAt: time.Now().UTC(),
				}))
			}
		}()
	}
	wg.Wait()

	var got models.LineageEdge
	require.NoError(t, store.Edges.GetByID(ctx, edge.ID, &got))
	assert.Equal(t, int64(workers*perWorker*10), got.BytesAllTime)
	assert.Equal(t, int64(workers*perWorker), got.MessagesLast24h)
}

func TestPostgresRejectsDuplicateEdgeKey(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openPostgres(t))
	edge := seedEdge(t, store, nil)

	dup := edge
	dup.ID = uuid.Nil
	assert.Error(t, store.Edges.Create(ctx, &dup))

	var found models.LineageEdge
	key := EdgeKey{SourceServiceAccountID: edge.SourceServiceAccountID, TopicID: edge.TopicID, Direction: edge.Direction}
	require.NoError(t, store.Edges.FindByKey(ctx, key, &found))
	assert.Equal(t, edge.ID, found.ID)
}
