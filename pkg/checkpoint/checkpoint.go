// Package checkpoint provides storage for human-review checkpoints.
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/spinscribe/spinscribe/pkg/models"
)

var (
	// ErrCheckpointNotFound indicates a checkpoint was not found by id.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrAlreadyResolved indicates a resolution was attempted twice.
	ErrAlreadyResolved = errors.New("checkpoint already resolved")
)

// IsCheckpointNotFound checks if an error indicates a missing checkpoint.
func IsCheckpointNotFound(err error) bool {
	return errors.Is(err, ErrCheckpointNotFound)
}

// IsAlreadyResolved checks if an error indicates a duplicate resolution.
func IsAlreadyResolved(err error) bool {
	return errors.Is(err, ErrAlreadyResolved)
}

// Store persists checkpoints raised by the engine and resolved through the
// API. The engine only ever creates; listing and resolution are caller
// concerns.
type Store interface {
	Create(ctx context.Context, checkpoint *models.Checkpoint) error
	GetByID(ctx context.Context, id string) (*models.Checkpoint, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Checkpoint, error)
	ListPending(ctx context.Context) ([]*models.Checkpoint, error)
	Resolve(ctx context.Context, id string, status models.CheckpointStatus, reviewer, notes string) (*models.Checkpoint, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// CheckpointError wraps checkpoint store errors with operation context.
type CheckpointError struct {
	Op           string
	CheckpointID string
	Err          error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("%s operation failed for checkpoint %s: %v", e.Op, e.CheckpointID, e.Err)
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}

func (e *CheckpointError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCheckpointError creates a new checkpoint error with context.
func NewCheckpointError(op, checkpointID string, err error) *CheckpointError {
	return &CheckpointError{
		Op:           op,
		CheckpointID: checkpointID,
		Err:          err,
	}
}
