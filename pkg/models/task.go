package models

import "time"

// TaskStatus represents the lifecycle state of a single task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusReady      TaskStatus = "ready"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// TaskDefinition is one unit of workflow work bound to an agent role.
// Definitions are immutable templates; each execution works on its own copy.
type TaskDefinition struct {
	TaskID            string        `json:"task_id"            validate:"required"`
	Name              string        `json:"name"               validate:"required"`
	Description       string        `json:"description"`
	AgentRole         AgentRole     `json:"agent_role"         validate:"required"`
	Dependencies      []string      `json:"dependencies"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	MaxRetries        int           `json:"max_retries"`
	RequiresApproval  bool          `json:"requires_approval"`
}

// Task is the per-execution runtime copy of a TaskDefinition.
type Task struct {
	TaskDefinition

	Status      TaskStatus     `json:"status"`
	ForcedReady bool           `json:"forced_ready,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewTask copies a definition into a fresh pending runtime task. The
// dependency slice is copied so executions never alias the template.
func NewTask(def TaskDefinition) *Task {
	deps := make([]string, len(def.Dependencies))
	copy(deps, def.Dependencies)
	def.Dependencies = deps

	return &Task{
		TaskDefinition: def,
		Status:         TaskStatusPending,
	}
}

// UnmetDependencies returns the dependency ids not present in completed.
func (t *Task) UnmetDependencies(completed map[string]*Task) []string {
	var unmet []string

	for _, dep := range t.Dependencies {
		if _, ok := completed[dep]; !ok {
			unmet = append(unmet, dep)
		}
	}

	return unmet
}
