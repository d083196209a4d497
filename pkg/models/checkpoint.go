package models

import "time"

// CheckpointStatus represents the review state of a human-approval checkpoint.
type CheckpointStatus string

const (
	CheckpointPending  CheckpointStatus = "pending"
	CheckpointApproved CheckpointStatus = "approved"
	CheckpointRejected CheckpointStatus = "rejected"
)

// Checkpoint records a point where a human reviewer can approve or reject
// the output of a completed task. The engine records checkpoints and moves
// on; resolution happens out of band through the API.
type Checkpoint struct {
	ID         string           `json:"id"`
	WorkflowID string           `json:"workflow_id"`
	TaskID     string           `json:"task_id"`
	ProjectID  string           `json:"project_id"`
	Status     CheckpointStatus `json:"status"`
	TaskResult map[string]any   `json:"task_result,omitempty"`
	Reviewer   string           `json:"reviewer,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
}
