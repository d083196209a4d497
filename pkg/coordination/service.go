// Package coordination bridges the engine to the external multi-agent
// coordination service.
package coordination

import (
	"context"
	"errors"
	"fmt"

	"github.com/spinscribe/spinscribe/pkg/models"
)

// PhaseResult is the outcome of one named phase of a coordinated run. A
// non-empty Error means the phase ran and failed.
type PhaseResult struct {
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Result is the full response of a coordinated execution.
type Result struct {
	PhasesCompleted int                    `json:"phases_completed"`
	WorkflowResults map[string]PhaseResult `json:"workflow_results"`
}

// Service is the external coordination session abstraction. Any error from
// these calls means "coordination unavailable" to the engine; it is carried
// as a typed value, never propagated as a panic or swallowed silently.
type Service interface {
	CreateSession(ctx context.Context, projectID, chatID string, roles []models.AgentRole, mode models.CoordinationMode) (string, error)
	Execute(ctx context.Context, sessionID string, request models.ContentRequest, workflowType string) (*Result, error)
	EndSession(ctx context.Context, sessionID string) error
}

// ErrCoordinationUnavailable is the sentinel wrapped by every Error.
var ErrCoordinationUnavailable = errors.New("coordination unavailable")

// Error describes why a coordinated execution could not be used. It is a
// value the caller branches on, not an exception channel.
type Error struct {
	Op        string // "create_session" or "execute"
	SessionID string
	Err       error
}

func (e *Error) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("coordination %s failed for session %s: %v", e.Op, e.SessionID, e.Err)
	}

	return fmt.Sprintf("coordination %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return ErrCoordinationUnavailable
}

// IsUnavailable checks if an error indicates the coordination path is unusable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrCoordinationUnavailable)
}
