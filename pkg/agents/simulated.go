package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spinscribe/spinscribe/pkg/models"
)

// SimulatedRunner produces synthetic phase results without calling an LLM.
// Used for local development and tests; production deployments inject a
// runner backed by the agent service.
type SimulatedRunner struct {
	logger *slog.Logger
	// Delay per phase. Zero means no artificial latency.
	Delay time.Duration
}

func NewSimulatedRunner(logger *slog.Logger) *SimulatedRunner {
	return &SimulatedRunner{
		logger: logger.With("module", "simulated_agent_runner"),
	}
}

func (r *SimulatedRunner) ExecutePhase(ctx context.Context, req PhaseRequest) (map[string]any, error) {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.logger.InfoContext(ctx, "Simulated phase execution",
		"workflow_id", req.WorkflowID,
		"task_id", req.TaskID,
		"agent_role", req.Role,
	)

	return map[string]any{
		"task_id":           req.TaskID,
		"agent_role":        string(req.Role),
		OutputKey(req.Role): fmt.Sprintf("%s completed for %q", req.TaskID, req.ContentRequest.Title),
		"simulated":         true,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}, nil
}

var _ Runner = (*SimulatedRunner)(nil)

// roleOutputKeys documents the synthetic payload each role contributes.
// Kept here so the simulated outputs stay stable across packages and tests.
var roleOutputKeys = map[models.AgentRole]string{
	models.RoleStyleAnalyzer:    "style_fingerprint",
	models.RoleContentPlanner:   "outline",
	models.RoleContentGenerator: "draft",
	models.RoleEditorQA:         "final_copy",
}

// OutputKey returns the payload key a role's simulated output is stored under.
func OutputKey(role models.AgentRole) string {
	if key, ok := roleOutputKeys[role]; ok {
		return key
	}

	return "output"
}
