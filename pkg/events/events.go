// Package events defines event types for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/spinscribe/spinscribe/pkg/models"
)

type EventType string

// Topic carries every workflow lifecycle event.
const Topic = "spinscribe.workflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"

	TaskFinishedEvent EventType = "workflow.task.finished"
	TaskFailedEvent   EventType = "workflow.task.failed"

	DeadlockRecoveredEvent EventType = "workflow.deadlock.recovered"
	CheckpointRaisedEvent  EventType = "workflow.checkpoint.raised"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	ProjectID  string         `json:"project_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

type WorkflowStarted struct {
	BaseEvent

	WorkflowType string `json:"workflow_type"`
	TotalTasks   int    `json:"total_tasks"`
	Coordinated  bool   `json:"coordinated"`
}

func (w WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	State          models.WorkflowState `json:"state"`
	CompletedTasks int                  `json:"completed_tasks"`
	FailedTasks    int                  `json:"failed_tasks"`
	TotalTasks     int                  `json:"total_tasks"`
	PartialResult  bool                 `json:"partial_result"`
	DurationMs     int64                `json:"duration_ms"`
}

func (w WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowFailed struct {
	BaseEvent

	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (w WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type WorkflowCancelled struct {
	BaseEvent

	CancelledBy string `json:"cancelled_by,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

func (w WorkflowCancelled) GetType() EventType {
	return WorkflowCancelledEvent
}

type TaskFinished struct {
	BaseEvent

	TaskID     string           `json:"task_id"`
	AgentRole  models.AgentRole `json:"agent_role"`
	DurationMs int64            `json:"duration_ms"`
}

func (t TaskFinished) GetType() EventType {
	return TaskFinishedEvent
}

type TaskFailed struct {
	BaseEvent

	TaskID    string           `json:"task_id"`
	AgentRole models.AgentRole `json:"agent_role"`
	Error     string           `json:"error"`
}

func (t TaskFailed) GetType() EventType {
	return TaskFailedEvent
}

// DeadlockRecovered records a task being forced ready after the scheduler
// observed no natural progress for several polling cycles.
type DeadlockRecovered struct {
	BaseEvent

	TaskID     string   `json:"task_id"`
	UnmetDeps  []string `json:"unmet_dependencies,omitempty"`
	IdleChecks int      `json:"idle_checks"`
}

func (d DeadlockRecovered) GetType() EventType {
	return DeadlockRecoveredEvent
}

type CheckpointRaised struct {
	BaseEvent

	CheckpointID string `json:"checkpoint_id"`
	TaskID       string `json:"task_id"`
}

func (c CheckpointRaised) GetType() EventType {
	return CheckpointRaisedEvent
}
