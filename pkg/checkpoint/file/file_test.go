package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/checkpoint/file"
	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckpoint(id, workflowID string) *models.Checkpoint {
	return &models.Checkpoint{
		ID:         id,
		WorkflowID: workflowID,
		TaskID:     "editing_qa",
		ProjectID:  "project-1",
		Status:     models.CheckpointPending,
		TaskResult: map[string]any{"final_copy": "text"},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestFileStore_CreateAndGet(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	cp := newCheckpoint("cp-1", "wf-1")
	require.NoError(t, store.Create(ctx, cp))

	got, err := store.GetByID(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", got.WorkflowID)
	assert.Equal(t, models.CheckpointPending, got.Status)
	assert.Equal(t, "text", got.TaskResult["final_copy"])
}

func TestFileStore_GetMissing(t *testing.T) {
	store := file.NewStore(t.TempDir())

	_, err := store.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, checkpoint.IsCheckpointNotFound(err))
}

func TestFileStore_ListByWorkflow(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	first := newCheckpoint("cp-1", "wf-1")
	second := newCheckpoint("cp-2", "wf-1")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := newCheckpoint("cp-3", "wf-2")

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, other))

	checkpoints, err := store.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, checkpoints, 2)
	assert.Equal(t, "cp-1", checkpoints[0].ID)
	assert.Equal(t, "cp-2", checkpoints[1].ID)
}

func TestFileStore_ListPending(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newCheckpoint("cp-1", "wf-1")))
	require.NoError(t, store.Create(ctx, newCheckpoint("cp-2", "wf-2")))

	_, err := store.Resolve(ctx, "cp-1", models.CheckpointApproved, "reviewer", "looks good")
	require.NoError(t, err)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "cp-2", pending[0].ID)
}

func TestFileStore_ResolveOnce(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newCheckpoint("cp-1", "wf-1")))

	resolved, err := store.Resolve(ctx, "cp-1", models.CheckpointRejected, "reviewer", "tone is off")
	require.NoError(t, err)
	assert.Equal(t, models.CheckpointRejected, resolved.Status)
	assert.Equal(t, "reviewer", resolved.Reviewer)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = store.Resolve(ctx, "cp-1", models.CheckpointApproved, "other", "")
	require.Error(t, err)
	assert.True(t, checkpoint.IsAlreadyResolved(err))
}

func TestFileStore_ListEmptyRoot(t *testing.T) {
	store := file.NewStore(t.TempDir() + "/nonexistent")

	checkpoints, err := store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, checkpoints)
}
