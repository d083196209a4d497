// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"encoding/json"

	"github.com/spinscribe/spinscribe/pkg/models"
)

// StartWorkflowRequest is the body of POST /workflows. ContentRequest is kept
// as a raw map so it can be checked against the per-type JSON schema before
// being decoded into the typed form.
type StartWorkflowRequest struct {
	WorkflowType   string         `json:"workflow_type"   validate:"required"`
	ProjectID      string         `json:"project_id"      validate:"required"`
	ChatID         string         `json:"chat_id"         validate:"required"`
	ContentRequest map[string]any `json:"content_request" validate:"required"`
}

// DecodeContentRequest converts the raw payload into the typed form after
// schema validation passed.
func (r *StartWorkflowRequest) DecodeContentRequest() (models.ContentRequest, error) {
	var request models.ContentRequest

	raw, err := json.Marshal(r.ContentRequest)
	if err != nil {
		return request, err
	}

	err = json.Unmarshal(raw, &request)

	return request, err
}

// StartWorkflowResponse acknowledges a scheduled workflow.
type StartWorkflowResponse struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowType string `json:"workflow_type"`
	Status       string `json:"status"`
}

// ResolveCheckpointRequest is the body of POST /checkpoints/:id/resolve.
type ResolveCheckpointRequest struct {
	Status   string `json:"status"   validate:"required,oneof=approved rejected"`
	Reviewer string `json:"reviewer" validate:"required"`
	Notes    string `json:"notes,omitempty"`
}
