package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spinscribe/spinscribe/pkg/agents"
	"github.com/spinscribe/spinscribe/pkg/coordination"
	"github.com/spinscribe/spinscribe/pkg/eventbus"
	"github.com/spinscribe/spinscribe/pkg/events"
	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/spinscribe/spinscribe/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// run drives one execution to a terminal state. It first attempts a single
// coordinated execution of the whole workflow; when that is unavailable or
// fails it falls back to sequential task scheduling with deadlock recovery
// and a workflow deadline.
func (e *Engine) run(ctx context.Context, exec *Execution) {
	logger := e.logger.With(
		"workflow_id", exec.WorkflowID(),
		"workflow_type", exec.workflowType,
	)

	var span trace.Span
	if e.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
			attribute.String(otelhelper.WorkflowIDKey, exec.WorkflowID()),
			attribute.String(otelhelper.WorkflowTypeKey, exec.workflowType),
			attribute.String(otelhelper.ProjectIDKey, exec.projectID),
		)
		defer span.End()
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("execution panic: %v", r)
			logger.Error("Workflow execution panicked", "panic", r)

			if span != nil {
				otelhelper.SetError(span, err, attribute.String(otelhelper.WorkflowStateKey, string(models.WorkflowStateFailed)))
			}

			e.finishFailed(ctx, exec, err)
		}
	}()

	exec.begin()

	outcome := e.adapter.Coordinate(ctx, exec.definition, exec.projectID, exec.chatID, exec.request)
	exec.setSessionID(outcome.SessionID)

	e.publishStarted(ctx, exec, outcome.Available())

	if span != nil && outcome.SessionID != "" {
		span.SetAttributes(attribute.String(otelhelper.SessionIDKey, outcome.SessionID))
	}

	if outcome.Available() && outcome.Result.PhasesCompleted >= 1 {
		if e.applyCoordinatedResult(ctx, exec, logger, outcome) {
			return
		}
	}

	e.runScheduler(ctx, exec, logger)
}

// applyCoordinatedResult maps the session's per-phase results onto tasks via
// the definition's phase lookup table. One or more mapped phases, completed
// or failed, counts as a successful coordinated run: the execution terminates
// completed with full progress and any unmapped tasks simply stay pending.
// When nothing maps, the caller falls back to the scheduler.
func (e *Engine) applyCoordinatedResult(ctx context.Context, exec *Execution, logger *slog.Logger, outcome coordination.Outcome) bool {
	mapped := 0

	for phase, phaseResult := range outcome.Result.WorkflowResults {
		taskID, ok := exec.definition.TaskByPhase[phase]
		if !ok {
			logger.Warn("Coordinated phase has no task mapping", "phase", phase)

			continue
		}

		if exec.applyPhaseOutcome(taskID, phaseResult.Output, phaseResult.Error) {
			mapped++
		}
	}

	if mapped == 0 {
		logger.Warn("Coordinated result mapped no tasks, falling back to scheduler",
			"phases_completed", outcome.Result.PhasesCompleted,
		)

		return false
	}

	exec.complete(true)
	e.publishCompleted(ctx, exec)
	e.adapter.EndSession(ctx, exec.sessionID())

	logger.Info("Workflow completed via coordinated execution",
		"session_id", outcome.SessionID,
		"mapped_phases", mapped,
	)

	return true
}

// runScheduler is the sequential fallback loop: compute the ready set, run
// one ready task, pause, repeat. No ready task for IdleThreshold consecutive
// cycles triggers deadlock recovery; a failed recovery or a blown deadline
// terminates with partial results.
func (e *Engine) runScheduler(ctx context.Context, exec *Execution, logger *slog.Logger) {
	if exec.totalTasks == 0 {
		exec.complete(true)
		e.publishCompleted(ctx, exec)
		logger.Info("Workflow has no tasks, completed immediately")

		return
	}

	exec.setState(models.WorkflowStateRunning)

	timeout := time.Duration(exec.definition.TimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	deadline := time.Now().Add(timeout)

	for {
		if ctx.Err() != nil {
			logger.Info("Workflow execution interrupted")

			return
		}

		if exec.terminal() {
			return
		}

		done, total := exec.accountedFor()
		if done >= total {
			break
		}

		if time.Now().After(deadline) {
			logger.Warn("Workflow deadline exceeded, completing with partial results",
				"timeout_minutes", exec.definition.TimeoutMinutes,
				"completed_tasks", done,
				"total_tasks", total,
			)
			exec.markPartial()

			break
		}

		ready := exec.readyTasks()
		if len(ready) == 0 {
			idle := exec.incrementIdle()
			if idle > e.idleThreshold {
				if !e.recoverDeadlock(ctx, exec, logger, idle) {
					exec.markPartial()

					break
				}

				continue
			}

			if !sleepCtx(ctx, e.pollInterval) {
				return
			}

			continue
		}

		exec.resetIdle()
		e.executeTask(ctx, exec, logger, ready[0])

		if !sleepCtx(ctx, e.taskInterval) {
			return
		}
	}

	if exec.terminal() {
		return
	}

	exec.complete(false)
	e.publishCompleted(ctx, exec)
	e.adapter.EndSession(ctx, exec.sessionID())

	snapshot := exec.Snapshot()
	logger.Info("Workflow completed",
		"completed_tasks", snapshot.CompletedTasks,
		"failed_tasks", snapshot.FailedTasks,
		"partial_result", snapshot.PartialResult,
		"progress", snapshot.ProgressPercentage,
	)
}

// recoverDeadlock forces the first near-ready pending task into the ready
// set so the loop can make progress past a missing dependency.
func (e *Engine) recoverDeadlock(ctx context.Context, exec *Execution, logger *slog.Logger, idleChecks int) bool {
	task, unmet, ok := exec.forceNearReadyTask()
	if !ok {
		logger.Warn("Deadlock detected with no recoverable task, completing with partial results",
			"idle_checks", idleChecks,
		)

		return false
	}

	logger.Warn("Recovered from scheduling deadlock by forcing task ready",
		"task_id", task.TaskID,
		"unmet_dependencies", unmet,
		"idle_checks", idleChecks,
	)

	e.publish(ctx, exec.WorkflowID(), events.DeadlockRecovered{
		BaseEvent:  e.baseEvent(events.DeadlockRecoveredEvent, exec),
		TaskID:     task.TaskID,
		UnmetDeps:  unmet,
		IdleChecks: idleChecks,
	})

	return true
}

// executeTask runs one ready task through the agent runner and records the
// outcome. A task that completed with RequiresApproval set raises a
// human-review checkpoint.
func (e *Engine) executeTask(ctx context.Context, exec *Execution, logger *slog.Logger, task *models.Task) {
	taskID := task.TaskID

	if !exec.beginTask(taskID) {
		return
	}

	logger.Info("Executing task", "task_id", taskID, "agent_role", task.AgentRole)

	started := time.Now()
	result, err := e.runner.ExecutePhase(ctx, agentsPhaseRequest(exec, task))
	duration := time.Since(started)

	if err != nil {
		exec.failTask(taskID, err)
		logger.Error("Task failed", "task_id", taskID, "error", err)

		e.publish(ctx, exec.WorkflowID(), events.TaskFailed{
			BaseEvent: e.baseEvent(events.TaskFailedEvent, exec),
			TaskID:    taskID,
			AgentRole: task.AgentRole,
			Error:     err.Error(),
		})

		return
	}

	exec.completeTask(taskID, result)
	logger.Info("Task completed", "task_id", taskID, "duration", duration)

	e.publish(ctx, exec.WorkflowID(), events.TaskFinished{
		BaseEvent:  e.baseEvent(events.TaskFinishedEvent, exec),
		TaskID:     taskID,
		AgentRole:  task.AgentRole,
		DurationMs: duration.Milliseconds(),
	})

	if task.RequiresApproval {
		e.raiseCheckpoint(ctx, exec, logger, taskID, result)
	}
}

// raiseCheckpoint persists a pending checkpoint for the task's output and
// flips the reporting state to human review. The loop does not block on
// resolution; reviewers approve or reject through the API afterwards.
func (e *Engine) raiseCheckpoint(ctx context.Context, exec *Execution, logger *slog.Logger, taskID string, result map[string]any) {
	if e.checkpoints == nil {
		return
	}

	cp := &models.Checkpoint{
		ID:         uuid.New().String(),
		WorkflowID: exec.WorkflowID(),
		TaskID:     taskID,
		ProjectID:  exec.projectID,
		Status:     models.CheckpointPending,
		TaskResult: result,
		CreatedAt:  time.Now().UTC(),
	}

	if err := e.checkpoints.Create(ctx, cp); err != nil {
		logger.Error("Failed to create checkpoint", "task_id", taskID, "error", err)

		return
	}

	exec.setState(models.WorkflowStateHumanReview)

	logger.Info("Checkpoint raised for human review", "checkpoint_id", cp.ID, "task_id", taskID)

	e.publish(ctx, exec.WorkflowID(), events.CheckpointRaised{
		BaseEvent:    e.baseEvent(events.CheckpointRaisedEvent, exec),
		CheckpointID: cp.ID,
		TaskID:       taskID,
	})
}

func (e *Engine) finishFailed(ctx context.Context, exec *Execution, cause error) {
	exec.fail()
	e.adapter.EndSession(ctx, exec.sessionID())

	e.publish(ctx, exec.WorkflowID(), events.WorkflowFailed{
		BaseEvent:  e.baseEvent(events.WorkflowFailedEvent, exec),
		Error:      cause.Error(),
		DurationMs: exec.durationMs(),
	})
}

func (e *Engine) publishStarted(ctx context.Context, exec *Execution, coordinated bool) {
	e.publish(ctx, exec.WorkflowID(), events.WorkflowStarted{
		BaseEvent:    e.baseEvent(events.WorkflowStartedEvent, exec),
		WorkflowType: exec.workflowType,
		TotalTasks:   exec.totalTasks,
		Coordinated:  coordinated,
	})
}

func (e *Engine) publishCompleted(ctx context.Context, exec *Execution) {
	snapshot := exec.Snapshot()

	e.publish(ctx, exec.WorkflowID(), events.WorkflowCompleted{
		BaseEvent:      e.baseEvent(events.WorkflowCompletedEvent, exec),
		State:          snapshot.State,
		CompletedTasks: snapshot.CompletedTasks,
		FailedTasks:    snapshot.FailedTasks,
		TotalTasks:     snapshot.TotalTasks,
		PartialResult:  snapshot.PartialResult,
		DurationMs:     exec.durationMs(),
	})
}

func (e *Engine) publishCancelled(ctx context.Context, exec *Execution) {
	e.publish(ctx, exec.WorkflowID(), events.WorkflowCancelled{
		BaseEvent:  e.baseEvent(events.WorkflowCancelledEvent, exec),
		DurationMs: exec.durationMs(),
	})
}

func (e *Engine) baseEvent(eventType events.EventType, exec *Execution) events.BaseEvent {
	base := events.NewBaseEvent(eventType, exec.WorkflowID())
	base.ProjectID = exec.projectID

	return base
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func agentsPhaseRequest(exec *Execution, task *models.Task) agents.PhaseRequest {
	return agents.PhaseRequest{
		WorkflowID:     exec.WorkflowID(),
		WorkflowType:   exec.workflowType,
		ProjectID:      exec.projectID,
		ChatID:         exec.chatID,
		TaskID:         task.TaskID,
		Role:           task.AgentRole,
		ContentRequest: exec.request,
		PriorResults:   exec.completedResults(),
	}
}

// sleepCtx pauses for d, returning false when the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
