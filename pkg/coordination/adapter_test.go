package coordination

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipelineDefinition() models.WorkflowDefinition {
	return models.WorkflowDefinition{
		WorkflowType:     "blog_post",
		CoordinationMode: models.CoordinationSequential,
		Tasks: []models.TaskDefinition{
			{TaskID: "style_analysis", AgentRole: models.RoleStyleAnalyzer},
			{TaskID: "content_generation", AgentRole: models.RoleContentGenerator},
		},
	}
}

func TestAdapter_NilServiceIsUnavailable(t *testing.T) {
	adapter := NewAdapter(nil, slog.Default())

	outcome := adapter.Coordinate(context.Background(), pipelineDefinition(), "p1", "c1", models.ContentRequest{})

	assert.False(t, outcome.Available())
	require.NotNil(t, outcome.Err)
	assert.True(t, IsUnavailable(outcome.Err))
	assert.Empty(t, outcome.SessionID)
}

func TestAdapter_CoordinateWithSimulatedService(t *testing.T) {
	service := NewSimulatedService(slog.Default())
	adapter := NewAdapter(service, slog.Default())

	outcome := adapter.Coordinate(context.Background(), pipelineDefinition(), "p1", "c1", models.ContentRequest{Title: "T"})

	require.True(t, outcome.Available())
	assert.NotEmpty(t, outcome.SessionID)
	assert.Equal(t, 2, outcome.Result.PhasesCompleted)
	assert.Contains(t, outcome.Result.WorkflowResults, "style_analysis")
	assert.Contains(t, outcome.Result.WorkflowResults, "content_generation")

	adapter.EndSession(context.Background(), outcome.SessionID)

	// The session is gone; ending it again must not panic or propagate.
	adapter.EndSession(context.Background(), outcome.SessionID)
}

// failingService errors on the configured step.
type failingService struct {
	failCreate  bool
	failExecute bool
}

func (s *failingService) CreateSession(context.Context, string, string, []models.AgentRole, models.CoordinationMode) (string, error) {
	if s.failCreate {
		return "", errors.New("agent service unreachable")
	}

	return "session-1", nil
}

func (s *failingService) Execute(context.Context, string, models.ContentRequest, string) (*Result, error) {
	if s.failExecute {
		return nil, errors.New("coordination crashed")
	}

	return &Result{}, nil
}

func (s *failingService) EndSession(context.Context, string) error {
	return nil
}

func TestAdapter_CreateSessionFailure(t *testing.T) {
	adapter := NewAdapter(&failingService{failCreate: true}, slog.Default())

	outcome := adapter.Coordinate(context.Background(), pipelineDefinition(), "p1", "c1", models.ContentRequest{})

	assert.False(t, outcome.Available())
	require.NotNil(t, outcome.Err)
	assert.Equal(t, "create_session", outcome.Err.Op)
}

func TestAdapter_ExecuteFailureKeepsSessionID(t *testing.T) {
	adapter := NewAdapter(&failingService{failExecute: true}, slog.Default())

	outcome := adapter.Coordinate(context.Background(), pipelineDefinition(), "p1", "c1", models.ContentRequest{})

	assert.False(t, outcome.Available())
	require.NotNil(t, outcome.Err)
	assert.Equal(t, "execute", outcome.Err.Op)
	assert.Equal(t, "session-1", outcome.SessionID)
}

func TestSimulatedService_SkipsCoordinatorRole(t *testing.T) {
	service := NewSimulatedService(slog.Default())

	sessionID, err := service.CreateSession(context.Background(), "p1", "c1",
		[]models.AgentRole{models.RoleCoordinator, models.RoleEditorQA}, models.CoordinationCollaborative)
	require.NoError(t, err)

	result, err := service.Execute(context.Background(), sessionID, models.ContentRequest{}, "blog_post")
	require.NoError(t, err)
	assert.Equal(t, 1, result.PhasesCompleted)
	assert.NotContains(t, result.WorkflowResults, string(models.RoleCoordinator))
}
