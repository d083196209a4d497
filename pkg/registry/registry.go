// Package registry holds the catalog of supported workflow types.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownWorkflowType is returned when a workflow type is not registered.
var ErrUnknownWorkflowType = errors.New("unknown workflow type")

// IsUnknownWorkflowType checks if an error indicates an unregistered type.
func IsUnknownWorkflowType(err error) bool {
	return errors.Is(err, ErrUnknownWorkflowType)
}

// Registry is the fixed catalog of workflow definitions, keyed by workflow
// type. Registering an existing type overwrites it (last write wins);
// executions already started keep their private task copies unaffected.
// Acyclicity of the dependency graph is not validated here: a cyclic
// definition can never complete naturally and terminates through the
// engine's deadlock-recovery path.
type Registry struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	definitions map[string]models.WorkflowDefinition
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger.With("module", "workflow_registry"),
		definitions: make(map[string]models.WorkflowDefinition),
	}
}

// Register adds or overwrites a definition by workflow type.
func (r *Registry) Register(definition models.WorkflowDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[definition.WorkflowType]; exists {
		r.logger.Info("Overwriting workflow definition", "workflow_type", definition.WorkflowType)
	}

	r.definitions[definition.WorkflowType] = definition
}

// Get returns the definition for a workflow type.
func (r *Registry) Get(workflowType string) (models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definition, ok := r.definitions[workflowType]
	if !ok {
		return models.WorkflowDefinition{}, fmt.Errorf("%w: %s", ErrUnknownWorkflowType, workflowType)
	}

	return definition, nil
}

// List returns per-type metadata for every registered definition.
func (r *Registry) List() []models.WorkflowTypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.WorkflowTypeInfo, 0, len(r.definitions))
	for _, definition := range r.definitions {
		infos = append(infos, models.WorkflowTypeInfo{
			WorkflowType:      definition.WorkflowType,
			Name:              definition.Name,
			Description:       definition.Description,
			TaskCount:         len(definition.Tasks),
			CoordinationMode:  definition.CoordinationMode,
			EstimatedDuration: definition.EstimatedTotalDuration(),
		})
	}

	return infos
}

// ValidateRequest checks a content-request payload against the definition's
// JSON schema, when one is declared.
func (r *Registry) ValidateRequest(workflowType string, payload map[string]any) error {
	definition, err := r.Get(workflowType)
	if err != nil {
		return err
	}

	if definition.RequestSchema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(definition.RequestSchema)
	dataLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate content request: %w", err)
	}

	if !result.Valid() {
		var descriptions []string
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid content request: %s", strings.Join(descriptions, "; "))
	}

	return nil
}

// HealthCheck reports whether the catalog has been populated.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.definitions) == 0 {
		return "No workflow definitions registered", false
	}

	return fmt.Sprintf("%d workflow definitions registered", len(r.definitions)), true
}
