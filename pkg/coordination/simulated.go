package coordination

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spinscribe/spinscribe/pkg/models"
)

// SimulatedService runs coordinated executions in process, producing one
// synthetic phase result per agent role in the session. Useful for local
// development without the agent service.
type SimulatedService struct {
	mu       sync.Mutex
	logger   *slog.Logger
	sessions map[string][]models.AgentRole
}

func NewSimulatedService(logger *slog.Logger) *SimulatedService {
	return &SimulatedService{
		logger:   logger.With("module", "simulated_coordination"),
		sessions: make(map[string][]models.AgentRole),
	}
}

func (s *SimulatedService) CreateSession(
	ctx context.Context,
	projectID, chatID string,
	roles []models.AgentRole,
	mode models.CoordinationMode,
) (string, error) {
	sessionID := "coord-" + uuid.New().String()[:8]

	s.mu.Lock()
	s.sessions[sessionID] = roles
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Created simulated coordination session",
		"session_id", sessionID,
		"project_id", projectID,
		"chat_id", chatID,
		"mode", mode,
		"roles", len(roles),
	)

	return sessionID, nil
}

func (s *SimulatedService) Execute(
	ctx context.Context,
	sessionID string,
	request models.ContentRequest,
	workflowType string,
) (*Result, error) {
	s.mu.Lock()
	roles, ok := s.sessions[sessionID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	results := make(map[string]PhaseResult, len(roles))

	for _, role := range roles {
		if role == models.RoleCoordinator {
			continue
		}

		results[string(role)] = PhaseResult{
			Output: map[string]any{
				"phase":   string(role),
				"title":   request.Title,
				"content": fmt.Sprintf("simulated %s output for %s", role, workflowType),
			},
		}
	}

	return &Result{
		PhasesCompleted: len(results),
		WorkflowResults: results,
	}, nil
}

func (s *SimulatedService) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}

	delete(s.sessions, sessionID)

	return nil
}

var _ Service = (*SimulatedService)(nil)
