// Package file provides file-based checkpoint storage for development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/models"
)

// Store implements checkpoint.Store on top of a directory of JSON files,
// one file per checkpoint.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Store{root: cleanRoot}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.root, id+".json")
}

func (s *Store) ensureRoot() error {
	return os.MkdirAll(s.root, 0o755)
}

func (s *Store) Create(ctx context.Context, cp *models.Checkpoint) error {
	if err := s.ensureRoot(); err != nil {
		return checkpoint.NewCheckpointError("Create", cp.ID, err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return checkpoint.NewCheckpointError("Create", cp.ID, err)
	}

	err = os.WriteFile(s.path(cp.ID), data, 0o644)
	if err != nil {
		return checkpoint.NewCheckpointError("Create", cp.ID, err)
	}

	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Checkpoint, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, checkpoint.NewCheckpointError("GetByID", id, checkpoint.ErrCheckpointNotFound)
		}

		return nil, checkpoint.NewCheckpointError("GetByID", id, err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, checkpoint.NewCheckpointError("GetByID", id, err)
	}

	return &cp, nil
}

func (s *Store) list(ctx context.Context, keep func(*models.Checkpoint) bool) ([]*models.Checkpoint, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*models.Checkpoint

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		cp, err := s.GetByID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if keep(cp) {
			checkpoints = append(checkpoints, cp)
		}
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.Before(checkpoints[j].CreatedAt)
	})

	return checkpoints, nil
}

func (s *Store) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Checkpoint, error) {
	return s.list(ctx, func(cp *models.Checkpoint) bool {
		return cp.WorkflowID == workflowID
	})
}

func (s *Store) ListPending(ctx context.Context) ([]*models.Checkpoint, error) {
	return s.list(ctx, func(cp *models.Checkpoint) bool {
		return cp.Status == models.CheckpointPending
	})
}

func (s *Store) Resolve(ctx context.Context, id string, status models.CheckpointStatus, reviewer, notes string) (*models.Checkpoint, error) {
	cp, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cp.Status != models.CheckpointPending {
		return nil, checkpoint.NewCheckpointError("Resolve", id, checkpoint.ErrAlreadyResolved)
	}

	now := time.Now().UTC()
	cp.Status = status
	cp.Reviewer = reviewer
	cp.Notes = notes
	cp.ResolvedAt = &now

	if err := s.Create(ctx, cp); err != nil {
		return nil, checkpoint.NewCheckpointError("Resolve", id, err)
	}

	return cp, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.ensureRoot()
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

var _ checkpoint.Store = (*Store)(nil)
