package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/checkpoint/postgresql"
	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS checkpoints CASCADE")
	require.NoError(t, err)

	err = db.Close()
	require.NoError(t, err)
}

func setupTestStore(t *testing.T) (*postgresql.Store, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("spinscribe_test"),
			postgres.WithUsername("spinscribe"),
			postgres.WithPassword("spinscribe"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewStore(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err := store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx
}

func testCheckpoint(workflowID string) *models.Checkpoint {
	return &models.Checkpoint{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		TaskID:     "editing_qa",
		ProjectID:  "project-1",
		Status:     models.CheckpointPending,
		TaskResult: map[string]any{"final_copy": "text"},
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPostgresStore_CreateAndGet(t *testing.T) {
	store, ctx := setupTestStore(t)

	cp := testCheckpoint("wf-1")
	require.NoError(t, store.Create(ctx, cp))

	got, err := store.GetByID(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, cp.WorkflowID, got.WorkflowID)
	assert.Equal(t, cp.TaskID, got.TaskID)
	assert.Equal(t, models.CheckpointPending, got.Status)
	assert.Equal(t, "text", got.TaskResult["final_copy"])
	assert.Nil(t, got.ResolvedAt)
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, ctx := setupTestStore(t)

	_, err := store.GetByID(ctx, uuid.New().String())
	require.Error(t, err)
	assert.True(t, checkpoint.IsCheckpointNotFound(err))
}

func TestPostgresStore_ListByWorkflowAndPending(t *testing.T) {
	store, ctx := setupTestStore(t)

	first := testCheckpoint("wf-1")
	second := testCheckpoint("wf-1")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := testCheckpoint("wf-2")

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, other))

	byWorkflow, err := store.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, byWorkflow, 2)
	assert.Equal(t, first.ID, byWorkflow[0].ID)
	assert.Equal(t, second.ID, byWorkflow[1].ID)

	_, err = store.Resolve(ctx, first.ID, models.CheckpointApproved, "reviewer", "")
	require.NoError(t, err)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestPostgresStore_ResolveOnce(t *testing.T) {
	store, ctx := setupTestStore(t)

	cp := testCheckpoint("wf-1")
	require.NoError(t, store.Create(ctx, cp))

	resolved, err := store.Resolve(ctx, cp.ID, models.CheckpointRejected, "reviewer", "tone is off")
	require.NoError(t, err)
	assert.Equal(t, models.CheckpointRejected, resolved.Status)
	assert.Equal(t, "reviewer", resolved.Reviewer)
	assert.Equal(t, "tone is off", resolved.Notes)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = store.Resolve(ctx, cp.ID, models.CheckpointApproved, "other", "")
	require.Error(t, err)
	assert.True(t, checkpoint.IsAlreadyResolved(err))
}

func TestPostgresStore_ResolveMissing(t *testing.T) {
	store, ctx := setupTestStore(t)

	_, err := store.Resolve(ctx, uuid.New().String(), models.CheckpointApproved, "reviewer", "")
	require.Error(t, err)
	assert.True(t, checkpoint.IsCheckpointNotFound(err))
}

func TestPostgresStore_HealthCheck(t *testing.T) {
	store, ctx := setupTestStore(t)

	assert.NoError(t, store.HealthCheck(ctx))
}
