// Package web provides HTTP handlers and REST API endpoints for workflow
// execution management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/engine"
	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/spinscribe/spinscribe/pkg/registry"
)

type APIHandlers struct {
	engine      *engine.Engine
	registry    *registry.Registry
	checkpoints checkpoint.Store
	validator   *validator.Validate
}

func NewAPIHandlers(
	eng *engine.Engine,
	reg *registry.Registry,
	checkpoints checkpoint.Store,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:      eng,
		registry:    reg,
		checkpoints: checkpoints,
		validator:   validator,
	}
}

// StartWorkflow schedules a new workflow execution. The content request is
// validated against the workflow type's JSON schema before anything is
// started; success means "scheduled", the caller polls status afterwards.
func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	var req StartWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registry.ValidateRequest(req.WorkflowType, req.ContentRequest); err != nil {
		if registry.IsUnknownWorkflowType(err) {
			return handleServiceError(c, err)
		}

		return badRequest(c, err.Error())
	}

	contentRequest, err := req.DecodeContentRequest()
	if err != nil {
		return badRequest(c, "Invalid content request: "+err.Error())
	}

	workflowID, err := h.engine.StartWorkflow(c.Context(), engine.StartRequest{
		WorkflowType:   req.WorkflowType,
		ProjectID:      req.ProjectID,
		ChatID:         req.ChatID,
		ContentRequest: contentRequest,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(StartWorkflowResponse{
		WorkflowID:   workflowID,
		WorkflowType: req.WorkflowType,
		Status:       "scheduled",
	})
}

func (h *APIHandlers) GetWorkflowStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	snapshot := h.engine.GetStatus(id)
	if snapshot == nil {
		return notFound(c, "Workflow not found")
	}

	return c.JSON(snapshot)
}

func (h *APIHandlers) CancelWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if !h.engine.CancelWorkflow(c.Context(), id) {
		return notFound(c, "Workflow not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListActiveWorkflows(c fiber.Ctx) error {
	active := h.engine.ListActiveWorkflows()

	return c.JSON(fiber.Map{
		"workflows":   active,
		"total_count": len(active),
	})
}

func (h *APIHandlers) ListWorkflowTypes(c fiber.Ctx) error {
	types := h.engine.ListWorkflowTypes()

	return c.JSON(fiber.Map{
		"workflow_types": types,
		"total_count":    len(types),
	})
}

func (h *APIHandlers) ListWorkflowCheckpoints(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	checkpoints, err := h.checkpoints.ListByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"checkpoints": checkpoints,
		"total_count": len(checkpoints),
	})
}

func (h *APIHandlers) ListPendingCheckpoints(c fiber.Ctx) error {
	checkpoints, err := h.checkpoints.ListPending(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"checkpoints": checkpoints,
		"total_count": len(checkpoints),
	})
}

func (h *APIHandlers) GetCheckpoint(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Checkpoint ID is required")
	}

	cp, err := h.checkpoints.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(cp)
}

// ResolveCheckpoint records a reviewer's approve or reject decision. A
// checkpoint can be resolved exactly once.
func (h *APIHandlers) ResolveCheckpoint(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Checkpoint ID is required")
	}

	var req ResolveCheckpointRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	resolved, err := h.checkpoints.Resolve(
		c.Context(), id, models.CheckpointStatus(req.Status), req.Reviewer, req.Notes,
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(resolved)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.engine.HealthCheck()

	checkpointCheck := "ok"
	cpOk := true

	if err := h.checkpoints.HealthCheck(c.Context()); err != nil {
		checkpointCheck = err.Error()
		cpOk = false
	}

	status := "unhealthy"
	message := "SpinScribe API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && cpOk {
		status = "healthy"
		message = "SpinScribe API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":    registryCheck,
			"checkpoints": checkpointCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
