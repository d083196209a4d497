package models

import "time"

// WorkflowState is the coarse lifecycle state of a workflow execution. The
// per-stage states mirror whichever task is currently executing; they exist
// for status reporting only and never gate transitions.
type WorkflowState string

const (
	WorkflowStatePending           WorkflowState = "pending"
	WorkflowStateInitializing      WorkflowState = "initializing"
	WorkflowStateRunning           WorkflowState = "running"
	WorkflowStateStyleAnalysis     WorkflowState = "style_analysis"
	WorkflowStateContentPlanning   WorkflowState = "content_planning"
	WorkflowStateContentGeneration WorkflowState = "content_generation"
	WorkflowStateEditingQA         WorkflowState = "editing_qa"
	WorkflowStateHumanReview       WorkflowState = "human_review"
	WorkflowStateCompleted         WorkflowState = "completed"
	WorkflowStateFailed            WorkflowState = "failed"
	WorkflowStateCancelled         WorkflowState = "cancelled"
)

// Terminal reports whether no further task-state mutation may occur.
func (s WorkflowState) Terminal() bool {
	return s == WorkflowStateCompleted || s == WorkflowStateFailed || s == WorkflowStateCancelled
}

// StatusSnapshot is the read-only projection of an execution returned to
// callers. State alone does not distinguish a fully successful run from a
// deadlock-recovery partial completion; check PartialResult or compare
// CompletedTasks against TotalTasks.
type StatusSnapshot struct {
	WorkflowID            string                `json:"workflow_id"`
	WorkflowType          string                `json:"workflow_type"`
	ProjectID             string                `json:"project_id"`
	ChatID                string                `json:"chat_id,omitempty"`
	State                 WorkflowState         `json:"state"`
	CurrentPhase          string                `json:"current_phase,omitempty"`
	ProgressPercentage    float64               `json:"progress_percentage"`
	TotalTasks            int                   `json:"total_tasks"`
	ActiveTasks           int                   `json:"active_tasks"`
	CompletedTasks        int                   `json:"completed_tasks"`
	FailedTasks           int                   `json:"failed_tasks"`
	PartialResult         bool                  `json:"partial_result"`
	CoordinationSessionID string                `json:"coordination_session_id,omitempty"`
	TaskStatuses          map[string]TaskStatus `json:"task_statuses,omitempty"`
	StartedAt             *time.Time            `json:"started_at,omitempty"`
	CompletedAt           *time.Time            `json:"completed_at,omitempty"`
}

// WorkflowTypeInfo is the per-type metadata exposed for UI population.
type WorkflowTypeInfo struct {
	WorkflowType      string           `json:"workflow_type"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	TaskCount         int              `json:"task_count"`
	CoordinationMode  CoordinationMode `json:"coordination_mode"`
	EstimatedDuration time.Duration    `json:"estimated_duration"`
}
