package engine

import (
	"sync"
	"time"

	"github.com/spinscribe/spinscribe/pkg/models"
)

// Execution is the runtime instance of one started workflow. It owns a
// private copy of every task definition, held in three disjoint maps by task
// id: active (pending/ready/in-progress), completed, failed. A task id
// appears in exactly one of the three at any time.
//
// The engine's background goroutine mutates the execution while API callers
// read snapshots, so all access goes through the mutex. Once the state is
// terminal, mutators become no-ops.
type Execution struct {
	mu sync.RWMutex

	workflowID   string
	workflowType string
	projectID    string
	chatID       string
	definition   models.WorkflowDefinition
	request      models.ContentRequest

	state     models.WorkflowState
	active    map[string]*models.Task
	completed map[string]*models.Task
	failed    map[string]*models.Task
	taskOrder []string

	totalTasks         int
	progressPercentage float64

	consecutiveIdleChecks int
	lastProgressTime      time.Time

	coordinationSessionID string
	partialResult         bool

	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time

	cancel func()
}

func newExecution(workflowID string, definition models.WorkflowDefinition, projectID, chatID string, request models.ContentRequest) *Execution {
	exec := &Execution{
		workflowID:   workflowID,
		workflowType: definition.WorkflowType,
		projectID:    projectID,
		chatID:       chatID,
		definition:   definition,
		request:      request,
		state:        models.WorkflowStatePending,
		active:       make(map[string]*models.Task, len(definition.Tasks)),
		completed:    make(map[string]*models.Task),
		failed:       make(map[string]*models.Task),
		taskOrder:    make([]string, 0, len(definition.Tasks)),
		totalTasks:   len(definition.Tasks),
		createdAt:    time.Now().UTC(),
	}

	for _, def := range definition.Tasks {
		exec.active[def.TaskID] = models.NewTask(def)
		exec.taskOrder = append(exec.taskOrder, def.TaskID)
	}

	return exec
}

// WorkflowID returns the generated id of this execution.
func (x *Execution) WorkflowID() string {
	return x.workflowID
}

// Snapshot builds the read-only status projection. Two calls without task
// progress in between return identical snapshots.
func (x *Execution) Snapshot() models.StatusSnapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()

	statuses := make(map[string]models.TaskStatus, x.totalTasks)
	currentPhase := ""

	for id, task := range x.active {
		statuses[id] = task.Status
		if task.Status == models.TaskStatusInProgress {
			currentPhase = id
		}
	}

	for id := range x.completed {
		statuses[id] = models.TaskStatusCompleted
	}

	for id := range x.failed {
		statuses[id] = models.TaskStatusFailed
	}

	return models.StatusSnapshot{
		WorkflowID:            x.workflowID,
		WorkflowType:          x.workflowType,
		ProjectID:             x.projectID,
		ChatID:                x.chatID,
		State:                 x.state,
		CurrentPhase:          currentPhase,
		ProgressPercentage:    x.progressPercentage,
		TotalTasks:            x.totalTasks,
		ActiveTasks:           len(x.active),
		CompletedTasks:        len(x.completed),
		FailedTasks:           len(x.failed),
		PartialResult:         x.partialResult,
		CoordinationSessionID: x.coordinationSessionID,
		TaskStatuses:          statuses,
		StartedAt:             x.startedAt,
		CompletedAt:           x.completedAt,
	}
}

func (x *Execution) begin() {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return
	}

	now := time.Now().UTC()
	x.state = models.WorkflowStateInitializing
	x.startedAt = &now
	x.lastProgressTime = now
}

func (x *Execution) setState(state models.WorkflowState) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return
	}

	x.state = state
}

func (x *Execution) setSessionID(sessionID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.coordinationSessionID = sessionID
}

func (x *Execution) sessionID() string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return x.coordinationSessionID
}

func (x *Execution) terminal() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return x.state.Terminal()
}

// accountedFor reports completed+failed against the total.
func (x *Execution) accountedFor() (int, int) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.completed) + len(x.failed), x.totalTasks
}

// readyTasks marks every pending task whose dependencies are all completed
// as ready and returns the ready set in definition order. Tasks forced ready
// by deadlock recovery are already in the ready state and are included.
func (x *Execution) readyTasks() []*models.Task {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return nil
	}

	var ready []*models.Task

	for _, id := range x.taskOrder {
		task, ok := x.active[id]
		if !ok {
			continue
		}

		switch task.Status {
		case models.TaskStatusReady:
			ready = append(ready, task)
		case models.TaskStatusPending:
			if len(task.UnmetDependencies(x.completed)) == 0 {
				task.Status = models.TaskStatusReady
				ready = append(ready, task)
			}
		}
	}

	return ready
}

// incrementIdle counts one polling cycle with no ready task.
func (x *Execution) incrementIdle() int {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.consecutiveIdleChecks++

	return x.consecutiveIdleChecks
}

func (x *Execution) resetIdle() {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.consecutiveIdleChecks = 0
	x.lastProgressTime = time.Now().UTC()
}

// forceNearReadyTask implements the deadlock-recovery selection rule: the
// first pending task, in definition order, blocked on at most one missing
// predecessor is forced into the ready state. This can make a task run with
// an unmet dependency; that is the documented recovery heuristic, not a bug.
func (x *Execution) forceNearReadyTask() (*models.Task, []string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return nil, nil, false
	}

	for _, id := range x.taskOrder {
		task, ok := x.active[id]
		if !ok || task.Status != models.TaskStatusPending {
			continue
		}

		unmet := task.UnmetDependencies(x.completed)
		if len(unmet) <= 1 {
			task.Status = models.TaskStatusReady
			task.ForcedReady = true
			x.consecutiveIdleChecks = 0

			return task, unmet, true
		}
	}

	return nil, nil, false
}

// beginTask moves a task to in-progress and mirrors it into the coarse
// reporting state.
func (x *Execution) beginTask(taskID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return false
	}

	task, ok := x.active[taskID]
	if !ok {
		return false
	}

	now := time.Now().UTC()
	task.Status = models.TaskStatusInProgress
	task.StartedAt = &now
	x.state = x.definition.StateForTask(taskID)

	return true
}

// completeTask moves a task from active to completed and recomputes progress.
func (x *Execution) completeTask(taskID string, result map[string]any) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return
	}

	task, ok := x.active[taskID]
	if !ok {
		return
	}

	now := time.Now().UTC()
	task.Status = models.TaskStatusCompleted
	task.Result = result
	task.CompletedAt = &now

	delete(x.active, taskID)
	x.completed[taskID] = task

	x.recomputeProgressLocked()
	x.lastProgressTime = now
}

// failTask moves a task from active to failed. No automatic retry happens
// here; MaxRetries is consumed by the agent runner, not the scheduler.
func (x *Execution) failTask(taskID string, taskErr error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return
	}

	task, ok := x.active[taskID]
	if !ok {
		return
	}

	now := time.Now().UTC()
	task.Status = models.TaskStatusFailed
	task.Error = taskErr.Error()
	task.CompletedAt = &now

	delete(x.active, taskID)
	x.failed[taskID] = task

	x.recomputeProgressLocked()
}

func (x *Execution) recomputeProgressLocked() {
	if x.totalTasks == 0 {
		x.progressPercentage = 100

		return
	}

	x.progressPercentage = 100 * float64(len(x.completed)) / float64(x.totalTasks)
}

// applyPhaseOutcome maps one coordinated phase result onto its task.
func (x *Execution) applyPhaseOutcome(taskID string, result map[string]any, phaseErr string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return false
	}

	task, ok := x.active[taskID]
	if !ok {
		return false
	}

	now := time.Now().UTC()
	task.CompletedAt = &now
	delete(x.active, taskID)

	if phaseErr != "" {
		task.Status = models.TaskStatusFailed
		task.Error = phaseErr
		x.failed[taskID] = task
	} else {
		task.Status = models.TaskStatusCompleted
		task.Result = result
		x.completed[taskID] = task
	}

	x.recomputeProgressLocked()
	x.lastProgressTime = now

	return true
}

// markPartial records that the run is terminating without all tasks having
// finished (timeout or unrecoverable deadlock).
func (x *Execution) markPartial() {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return
	}

	x.partialResult = true
}

// complete stamps the completed terminal state. When forceFullProgress is
// set (coordinated path, zero-task definitions) the progress is pinned to
// 100 regardless of the per-task counters.
func (x *Execution) complete(forceFullProgress bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return
	}

	now := time.Now().UTC()
	x.state = models.WorkflowStateCompleted
	x.completedAt = &now

	if forceFullProgress {
		x.progressPercentage = 100
	}
}

// fail stamps the failed terminal state.
func (x *Execution) fail() {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return
	}

	now := time.Now().UTC()
	x.state = models.WorkflowStateFailed
	x.completedAt = &now
}

// markCancelled stamps the cancelled terminal state. Returns false when the
// execution already reached a terminal state.
func (x *Execution) markCancelled() bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.state.Terminal() {
		return false
	}

	now := time.Now().UTC()
	x.state = models.WorkflowStateCancelled
	x.completedAt = &now

	return true
}

// durationMs reports wall time since the execution began, in milliseconds.
func (x *Execution) durationMs() int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.startedAt == nil {
		return 0
	}

	end := time.Now().UTC()
	if x.completedAt != nil {
		end = *x.completedAt
	}

	return end.Sub(*x.startedAt).Milliseconds()
}

// completedResults returns the results of completed tasks, keyed by task id.
func (x *Execution) completedResults() map[string]map[string]any {
	x.mu.RLock()
	defer x.mu.RUnlock()

	results := make(map[string]map[string]any, len(x.completed))
	for id, task := range x.completed {
		results[id] = task.Result
	}

	return results
}

// taskSnapshot returns a copy of a runtime task field set used for events
// and checkpoints.
func (x *Execution) taskSnapshot(taskID string) (models.Task, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, m := range []map[string]*models.Task{x.active, x.completed, x.failed} {
		if task, ok := m[taskID]; ok {
			return *task, true
		}
	}

	return models.Task{}, false
}
