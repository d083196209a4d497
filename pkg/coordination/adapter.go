package coordination

import (
	"context"
	"log/slog"

	"github.com/spinscribe/spinscribe/pkg/models"
)

// Outcome is the adapter's answer to "can this workflow run coordinated".
// Exactly one of Result or Err is set. A set Err is the engine's signal to
// fall back to sequential scheduling.
type Outcome struct {
	SessionID string
	Result    *Result
	Err       *Error
}

// Available reports whether the coordinated result can be used.
func (o Outcome) Available() bool {
	return o.Err == nil && o.Result != nil
}

// Adapter attempts to delegate a whole workflow to a coordination session in
// one shot. A nil service behaves as permanently unavailable, which disables
// the coordinated path without special-casing at call sites.
type Adapter struct {
	service Service
	logger  *slog.Logger
}

func NewAdapter(service Service, logger *slog.Logger) *Adapter {
	return &Adapter{
		service: service,
		logger:  logger.With("module", "coordination_adapter"),
	}
}

// Coordinate creates a session scoped to the definition's agent roles and
// coordination mode, then requests execution of the entire workflow as a
// single coordinated call. Service failures are converted into the Outcome's
// Err field; they never propagate.
func (a *Adapter) Coordinate(
	ctx context.Context,
	definition models.WorkflowDefinition,
	projectID, chatID string,
	request models.ContentRequest,
) Outcome {
	if a.service == nil {
		return Outcome{Err: &Error{Op: "create_session", Err: ErrCoordinationUnavailable}}
	}

	sessionID, err := a.service.CreateSession(ctx, projectID, chatID, definition.AgentRoles(), definition.CoordinationMode)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to create coordination session",
			"workflow_type", definition.WorkflowType,
			"error", err,
		)

		return Outcome{Err: &Error{Op: "create_session", Err: err}}
	}

	result, err := a.service.Execute(ctx, sessionID, request, definition.WorkflowType)
	if err != nil {
		a.logger.WarnContext(ctx, "Coordinated execution failed",
			"workflow_type", definition.WorkflowType,
			"session_id", sessionID,
			"error", err,
		)

		return Outcome{SessionID: sessionID, Err: &Error{Op: "execute", SessionID: sessionID, Err: err}}
	}

	return Outcome{SessionID: sessionID, Result: result}
}

// EndSession tears down a coordination session. Failures are logged only;
// teardown is best effort.
func (a *Adapter) EndSession(ctx context.Context, sessionID string) {
	if a.service == nil || sessionID == "" {
		return
	}

	if err := a.service.EndSession(ctx, sessionID); err != nil {
		a.logger.WarnContext(ctx, "Failed to end coordination session",
			"session_id", sessionID,
			"error", err,
		)
	}
}
