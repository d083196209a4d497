// Package models defines the core domain models for agent-driven content workflows.
package models

import "time"

// CoordinationMode selects how a coordination session drives the agents.
type CoordinationMode string

const (
	CoordinationSequential    CoordinationMode = "sequential"
	CoordinationParallel      CoordinationMode = "parallel"
	CoordinationCollaborative CoordinationMode = "collaborative"
	CoordinationReviewFocused CoordinationMode = "review_focused"
)

// WorkflowDefinition is the immutable template for one workflow type.
// StateByTask and TaskByPhase are declarative lookup tables: the first maps
// a running task to the coarse WorkflowState reported for it, the second maps
// coordination phase names back to task ids.
type WorkflowDefinition struct {
	WorkflowType     string                   `json:"workflow_type"      validate:"required"`
	Name             string                   `json:"name"               validate:"required,min=3"`
	Description      string                   `json:"description"`
	Tasks            []TaskDefinition         `json:"tasks"`
	CoordinationMode CoordinationMode         `json:"coordination_mode"`
	MaxParallelTasks int                      `json:"max_parallel_tasks"`
	TimeoutMinutes   int                      `json:"timeout_minutes"`
	StateByTask      map[string]WorkflowState `json:"state_by_task,omitempty"`
	TaskByPhase      map[string]string        `json:"task_by_phase,omitempty"`
	RequestSchema    map[string]any           `json:"request_schema,omitempty"`
}

// EstimatedTotalDuration sums the per-task scheduling hints.
func (d *WorkflowDefinition) EstimatedTotalDuration() time.Duration {
	var total time.Duration
	for _, task := range d.Tasks {
		total += task.EstimatedDuration
	}

	return total
}

// AgentRoles returns the distinct roles required by the definition, in task order.
func (d *WorkflowDefinition) AgentRoles() []AgentRole {
	seen := make(map[AgentRole]bool, len(d.Tasks))
	roles := make([]AgentRole, 0, len(d.Tasks))

	for _, task := range d.Tasks {
		if !seen[task.AgentRole] {
			seen[task.AgentRole] = true

			roles = append(roles, task.AgentRole)
		}
	}

	return roles
}

// StateForTask resolves the reporting state for a task, defaulting to running.
func (d *WorkflowDefinition) StateForTask(taskID string) WorkflowState {
	if state, ok := d.StateByTask[taskID]; ok {
		return state
	}

	return WorkflowStateRunning
}

// ContentRequest describes what the caller wants produced.
type ContentRequest struct {
	Title        string         `json:"title"              validate:"required"`
	ContentType  string         `json:"content_type"`
	Brief        string         `json:"brief"`
	Audience     string         `json:"audience,omitempty"`
	Tone         string         `json:"tone,omitempty"`
	WordCount    int            `json:"word_count,omitempty"`
	LanguageCode string         `json:"language_code,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
