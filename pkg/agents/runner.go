// Package agents defines the boundary to the external LLM agent framework.
package agents

import (
	"context"

	"github.com/spinscribe/spinscribe/pkg/models"
)

// PhaseRequest carries everything an agent needs to execute one task.
type PhaseRequest struct {
	WorkflowID     string
	WorkflowType   string
	ProjectID      string
	ChatID         string
	TaskID         string
	Role           models.AgentRole
	ContentRequest models.ContentRequest
	// Results of already-completed tasks, keyed by task id.
	PriorResults map[string]map[string]any
}

// Runner executes a single workflow phase with an agent of the given role.
// Retry of transient LLM failures is the runner's concern, bounded by the
// task's MaxRetries hint; the scheduler does not retry failed tasks.
type Runner interface {
	ExecutePhase(ctx context.Context, req PhaseRequest) (map[string]any, error)
}
