// Package postgresql provides PostgreSQL checkpoint storage.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/models"
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id UUID PRIMARY KEY,
		workflow_id VARCHAR(255) NOT NULL,
		task_id VARCHAR(255) NOT NULL,
		project_id VARCHAR(255),
		status VARCHAR(50) NOT NULL,
		task_result JSONB,
		reviewer VARCHAR(255),
		notes TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		resolved_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoints_workflow_id ON checkpoints(workflow_id);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_status ON checkpoints(status);
`

// Store implements checkpoint.Store backed by PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to PostgreSQL and ensures the checkpoints table exists.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	_, err = database.ExecContext(ctx, createTableSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure checkpoints table: %w", err)
	}

	return &Store{
		db:     database,
		logger: logger.With("module", "checkpoint_postgresql"),
	}, nil
}

func (s *Store) Create(ctx context.Context, cp *models.Checkpoint) error {
	taskResult, err := json.Marshal(cp.TaskResult)
	if err != nil {
		return checkpoint.NewCheckpointError("Create", cp.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, workflow_id, task_id, project_id, status, task_result, reviewer, notes, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		cp.ID, cp.WorkflowID, cp.TaskID, cp.ProjectID, cp.Status, taskResult, cp.Reviewer, cp.Notes, cp.CreatedAt, cp.ResolvedAt,
	)
	if err != nil {
		return checkpoint.NewCheckpointError("Create", cp.ID, err)
	}

	return nil
}

func (s *Store) scanRow(row interface{ Scan(...any) error }) (*models.Checkpoint, error) {
	var (
		cp         models.Checkpoint
		taskResult []byte
		resolvedAt sql.NullTime
	)

	err := row.Scan(&cp.ID, &cp.WorkflowID, &cp.TaskID, &cp.ProjectID, &cp.Status, &taskResult, &cp.Reviewer, &cp.Notes, &cp.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if len(taskResult) > 0 {
		if err := json.Unmarshal(taskResult, &cp.TaskResult); err != nil {
			return nil, err
		}
	}

	if resolvedAt.Valid {
		cp.ResolvedAt = &resolvedAt.Time
	}

	return &cp, nil
}

const selectColumns = "id, workflow_id, task_id, project_id, status, task_result, reviewer, notes, created_at, resolved_at"

func (s *Store) GetByID(ctx context.Context, id string) (*models.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM checkpoints WHERE id = $1", id)

	cp, err := s.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkpoint.NewCheckpointError("GetByID", id, checkpoint.ErrCheckpointNotFound)
		}

		return nil, checkpoint.NewCheckpointError("GetByID", id, err)
	}

	return cp, nil
}

func (s *Store) queryList(ctx context.Context, query string, args ...any) ([]*models.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("Failed to close rows", "error", closeErr)
		}
	}()

	var checkpoints []*models.Checkpoint

	for rows.Next() {
		cp, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}

		checkpoints = append(checkpoints, cp)
	}

	return checkpoints, rows.Err()
}

func (s *Store) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Checkpoint, error) {
	return s.queryList(ctx,
		"SELECT "+selectColumns+" FROM checkpoints WHERE workflow_id = $1 ORDER BY created_at",
		workflowID,
	)
}

func (s *Store) ListPending(ctx context.Context) ([]*models.Checkpoint, error) {
	return s.queryList(ctx,
		"SELECT "+selectColumns+" FROM checkpoints WHERE status = $1 ORDER BY created_at",
		models.CheckpointPending,
	)
}

func (s *Store) Resolve(ctx context.Context, id string, status models.CheckpointStatus, reviewer, notes string) (*models.Checkpoint, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE checkpoints
		SET status = $1, reviewer = $2, notes = $3, resolved_at = $4
		WHERE id = $5 AND status = $6`,
		status, reviewer, notes, now, id, models.CheckpointPending,
	)
	if err != nil {
		return nil, checkpoint.NewCheckpointError("Resolve", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, checkpoint.NewCheckpointError("Resolve", id, err)
	}

	if affected == 0 {
		// Either missing or already resolved; GetByID disambiguates.
		existing, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}

		if existing.Status != models.CheckpointPending {
			return nil, checkpoint.NewCheckpointError("Resolve", id, checkpoint.ErrAlreadyResolved)
		}

		return nil, checkpoint.NewCheckpointError("Resolve", id, checkpoint.ErrCheckpointNotFound)
	}

	return s.GetByID(ctx, id)
}

func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

var _ checkpoint.Store = (*Store)(nil)
