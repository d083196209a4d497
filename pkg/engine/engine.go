// Package engine implements the workflow execution engine: it instantiates
// executions from registered definitions, drives them through the
// coordination-first execution loop, and answers status queries.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spinscribe/spinscribe/pkg/agents"
	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/coordination"
	"github.com/spinscribe/spinscribe/pkg/eventbus"
	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/spinscribe/spinscribe/pkg/registry"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPollInterval  = 5 * time.Second
	defaultTaskInterval  = 1 * time.Second
	defaultIdleThreshold = 3
	defaultTimeout       = 30 * time.Minute
)

// Config collects the engine's collaborators and scheduling knobs. Registry,
// Runner and Logger are required; the rest are optional.
type Config struct {
	Logger      *slog.Logger
	Registry    *registry.Registry
	Coordinator coordination.Service
	Runner      agents.Runner
	Publisher   eventbus.EventPublisher
	Checkpoints checkpoint.Store
	Tracer      trace.Tracer

	// PollInterval is the sleep between idle scheduler cycles.
	PollInterval time.Duration
	// TaskInterval is the pause after each sequentially executed task.
	TaskInterval time.Duration
	// IdleThreshold is how many consecutive idle cycles trigger deadlock
	// recovery.
	IdleThreshold int
}

// Engine owns the in-memory execution table and the definition registry
// handle. One instance is constructed per process and passed to API-layer
// code; there are no package-level registries.
type Engine struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	registry    *registry.Registry
	adapter     *coordination.Adapter
	runner      agents.Runner
	publisher   eventbus.EventPublisher
	checkpoints checkpoint.Store
	tracer      trace.Tracer

	pollInterval  time.Duration
	taskInterval  time.Duration
	idleThreshold int

	executions map[string]*Execution
	wg         sync.WaitGroup
}

func NewEngine(cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.TaskInterval <= 0 {
		cfg.TaskInterval = defaultTaskInterval
	}

	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = defaultIdleThreshold
	}

	logger := cfg.Logger.With("module", "workflow_engine")

	return &Engine{
		logger:        logger,
		registry:      cfg.Registry,
		adapter:       coordination.NewAdapter(cfg.Coordinator, cfg.Logger),
		runner:        cfg.Runner,
		publisher:     cfg.Publisher,
		checkpoints:   cfg.Checkpoints,
		tracer:        cfg.Tracer,
		pollInterval:  cfg.PollInterval,
		taskInterval:  cfg.TaskInterval,
		idleThreshold: cfg.IdleThreshold,
		executions:    make(map[string]*Execution),
	}
}

// StartRequest carries everything needed to start one workflow.
type StartRequest struct {
	WorkflowType   string
	ProjectID      string
	ChatID         string
	ContentRequest models.ContentRequest
}

// StartWorkflow instantiates an execution from the registered definition and
// schedules its loop as a background goroutine. It returns as soon as the
// execution is registered; success means "scheduled", not "progressed". An
// unregistered workflow type fails synchronously.
func (e *Engine) StartWorkflow(ctx context.Context, req StartRequest) (string, error) {
	definition, err := e.registry.Get(req.WorkflowType)
	if err != nil {
		return "", err
	}

	workflowID := uuid.New().String()
	exec := newExecution(workflowID, definition, req.ProjectID, req.ChatID, req.ContentRequest)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	exec.cancel = cancel

	e.mu.Lock()
	e.executions[workflowID] = exec
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "Starting workflow",
		"workflow_id", workflowID,
		"workflow_type", req.WorkflowType,
		"project_id", req.ProjectID,
		"total_tasks", len(definition.Tasks),
	)

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer cancel()

		e.run(runCtx, exec)
	}()

	return workflowID, nil
}

// GetStatus returns a snapshot of the execution, or nil when the id is
// unknown. Callers must distinguish "never existed" from "exists but
// pending" themselves.
func (e *Engine) GetStatus(workflowID string) *models.StatusSnapshot {
	e.mu.RLock()
	exec, ok := e.executions[workflowID]
	e.mu.RUnlock()

	if !ok {
		return nil
	}

	snapshot := exec.Snapshot()

	return &snapshot
}

// CancelWorkflow transitions the execution to cancelled, interrupts its
// background loop, and tears down any coordination session. Returns false
// when the id is unknown.
func (e *Engine) CancelWorkflow(ctx context.Context, workflowID string) bool {
	e.mu.RLock()
	exec, ok := e.executions[workflowID]
	e.mu.RUnlock()

	if !ok {
		return false
	}

	if exec.markCancelled() {
		if exec.cancel != nil {
			exec.cancel()
		}

		e.adapter.EndSession(ctx, exec.sessionID())
		e.publishCancelled(ctx, exec)

		e.logger.InfoContext(ctx, "Workflow cancelled", "workflow_id", workflowID)
	}

	return true
}

// ListActiveWorkflows returns snapshots of every non-terminal execution.
func (e *Engine) ListActiveWorkflows() []models.StatusSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshots := make([]models.StatusSnapshot, 0, len(e.executions))

	for _, exec := range e.executions {
		snapshot := exec.Snapshot()
		if !snapshot.State.Terminal() {
			snapshots = append(snapshots, snapshot)
		}
	}

	return snapshots
}

// ListWorkflowTypes returns the registered per-type metadata.
func (e *Engine) ListWorkflowTypes() []models.WorkflowTypeInfo {
	return e.registry.List()
}

// Wait blocks until every in-flight execution loop has returned. Used by
// shutdown paths and tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// HealthCheck reports on the definition catalog.
func (e *Engine) HealthCheck() (string, bool) {
	return e.registry.HealthCheck()
}
