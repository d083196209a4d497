package engine

import (
	"errors"
	"testing"

	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecution(tasks ...models.TaskDefinition) *Execution {
	return newExecution("wf-1", definition("blog_post", tasks...), "project-1", "chat-1", models.ContentRequest{Title: "T"})
}

func TestExecution_TaskMapsStayDisjoint(t *testing.T) {
	exec := newTestExecution(task("a"), task("b"))

	exec.begin()
	require.True(t, exec.beginTask("a"))
	exec.completeTask("a", map[string]any{"ok": true})

	require.True(t, exec.beginTask("b"))
	exec.failTask("b", errors.New("boom"))

	assert.NotContains(t, exec.active, "a")
	assert.NotContains(t, exec.active, "b")
	assert.Contains(t, exec.completed, "a")
	assert.Contains(t, exec.failed, "b")

	done, total := exec.accountedFor()
	assert.Equal(t, 2, done)
	assert.Equal(t, 2, total)
}

func TestExecution_ProgressCountsOnlyCompletedTasks(t *testing.T) {
	exec := newTestExecution(task("a"), task("b"), task("c"), task("d"))

	exec.begin()
	exec.completeTask("a", nil)
	exec.failTask("b", errors.New("boom"))

	snapshot := exec.Snapshot()
	assert.InDelta(t, 25, snapshot.ProgressPercentage, 0.01)
}

func TestExecution_ReadyTasksFollowDefinitionOrder(t *testing.T) {
	exec := newTestExecution(task("c"), task("a"), task("b", "missing"))

	exec.begin()
	ready := exec.readyTasks()

	require.Len(t, ready, 2)
	assert.Equal(t, "c", ready[0].TaskID)
	assert.Equal(t, "a", ready[1].TaskID)
	assert.Equal(t, models.TaskStatusReady, ready[0].Status)
}

func TestExecution_ForceNearReadyTask(t *testing.T) {
	exec := newTestExecution(
		task("a", "x", "y"),
		task("b", "x"),
	)

	exec.begin()

	forced, unmet, ok := exec.forceNearReadyTask()
	require.True(t, ok)
	assert.Equal(t, "b", forced.TaskID)
	assert.Equal(t, []string{"x"}, unmet)
	assert.True(t, forced.ForcedReady)
	assert.Equal(t, models.TaskStatusReady, forced.Status)

	// "a" still has two unmet dependencies, so nothing else qualifies.
	_, _, ok = exec.forceNearReadyTask()
	assert.False(t, ok)
}

func TestExecution_ForcedTaskStaysInReadySet(t *testing.T) {
	exec := newTestExecution(task("a", "missing"))

	exec.begin()
	require.Empty(t, exec.readyTasks())

	_, _, ok := exec.forceNearReadyTask()
	require.True(t, ok)

	ready := exec.readyTasks()
	require.Len(t, ready, 1)
	assert.Equal(t, "a", ready[0].TaskID)
}

func TestExecution_TerminalStateFreezesEverything(t *testing.T) {
	exec := newTestExecution(task("a"))

	exec.begin()
	require.True(t, exec.markCancelled())

	before := exec.Snapshot()

	assert.False(t, exec.beginTask("a"))
	exec.completeTask("a", nil)
	exec.failTask("a", errors.New("boom"))
	exec.setState(models.WorkflowStateRunning)
	exec.complete(true)
	exec.fail()
	exec.markPartial()
	assert.False(t, exec.markCancelled())

	after := exec.Snapshot()
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.TaskStatuses, after.TaskStatuses)
	assert.Equal(t, before.ProgressPercentage, after.ProgressPercentage)
}

func TestExecution_SnapshotIsIdempotent(t *testing.T) {
	exec := newTestExecution(task("a"), task("b", "a"))

	exec.begin()
	exec.completeTask("a", nil)

	first := exec.Snapshot()
	second := exec.Snapshot()
	assert.Equal(t, first, second)
}

func TestExecution_BeginTaskSetsReportingState(t *testing.T) {
	def := definition("blog_post", task("style_analysis"))
	def.StateByTask = map[string]models.WorkflowState{
		"style_analysis": models.WorkflowStateStyleAnalysis,
	}
	exec := newExecution("wf-1", def, "project-1", "chat-1", models.ContentRequest{})

	exec.begin()
	require.True(t, exec.beginTask("style_analysis"))

	snapshot := exec.Snapshot()
	assert.Equal(t, models.WorkflowStateStyleAnalysis, snapshot.State)
	assert.Equal(t, "style_analysis", snapshot.CurrentPhase)
}

func TestExecution_ApplyPhaseOutcome(t *testing.T) {
	exec := newTestExecution(task("a"), task("b"))

	exec.begin()

	require.True(t, exec.applyPhaseOutcome("a", map[string]any{"draft": "text"}, ""))
	require.True(t, exec.applyPhaseOutcome("b", nil, "phase failed"))
	assert.False(t, exec.applyPhaseOutcome("missing", nil, ""))

	assert.Contains(t, exec.completed, "a")
	assert.Contains(t, exec.failed, "b")
}

func TestExecution_ZeroTasksReportFullProgress(t *testing.T) {
	exec := newTestExecution()

	exec.begin()
	exec.complete(true)

	snapshot := exec.Snapshot()
	assert.Equal(t, models.WorkflowStateCompleted, snapshot.State)
	assert.InDelta(t, 100, snapshot.ProgressPercentage, 0.01)
}

func TestExecution_CompletedResults(t *testing.T) {
	exec := newTestExecution(task("a"), task("b"))

	exec.begin()
	exec.completeTask("a", map[string]any{"draft": "text"})

	results := exec.completedResults()
	require.Len(t, results, 1)
	assert.Equal(t, "text", results["a"]["draft"])
}
