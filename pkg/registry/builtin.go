package registry

import (
	"time"

	"github.com/spinscribe/spinscribe/pkg/models"
)

// RegisterBuiltinDefinitions populates the catalog with the workflow types
// shipped with the platform. Called once at process startup.
func RegisterBuiltinDefinitions(r *Registry) {
	r.Register(BlogPostDefinition())
	r.Register(SocialMediaDefinition())
	r.Register(WebsiteContentDefinition())
}

// contentPipelineTasks builds the standard four-phase content pipeline:
// style analysis, planning, generation, editing/QA, each depending on the
// previous phase.
func contentPipelineTasks(generationMinutes int) []models.TaskDefinition {
	return []models.TaskDefinition{
		{
			TaskID:            "style_analysis",
			Name:              "Style Analysis",
			Description:       "Analyze brand voice and produce the style fingerprint",
			AgentRole:         models.RoleStyleAnalyzer,
			Dependencies:      nil,
			EstimatedDuration: 3 * time.Minute,
			MaxRetries:        2,
		},
		{
			TaskID:            "content_planning",
			Name:              "Content Planning",
			Description:       "Build the content outline from the request and style fingerprint",
			AgentRole:         models.RoleContentPlanner,
			Dependencies:      []string{"style_analysis"},
			EstimatedDuration: 4 * time.Minute,
			MaxRetries:        2,
		},
		{
			TaskID:            "content_generation",
			Name:              "Content Generation",
			Description:       "Draft the content following the outline",
			AgentRole:         models.RoleContentGenerator,
			Dependencies:      []string{"content_planning"},
			EstimatedDuration: time.Duration(generationMinutes) * time.Minute,
			MaxRetries:        1,
		},
		{
			TaskID:            "editing_qa",
			Name:              "Editing and QA",
			Description:       "Edit the draft and verify style conformance",
			AgentRole:         models.RoleEditorQA,
			Dependencies:      []string{"content_generation"},
			EstimatedDuration: 5 * time.Minute,
			MaxRetries:        2,
			RequiresApproval:  true,
		},
	}
}

// pipelineStateByTask maps each pipeline task to its reporting state.
func pipelineStateByTask() map[string]models.WorkflowState {
	return map[string]models.WorkflowState{
		"style_analysis":     models.WorkflowStateStyleAnalysis,
		"content_planning":   models.WorkflowStateContentPlanning,
		"content_generation": models.WorkflowStateContentGeneration,
		"editing_qa":         models.WorkflowStateEditingQA,
	}
}

// pipelineTaskByPhase maps coordination phase names back to task ids. The
// coordination service reports phases under the same names as the task ids.
func pipelineTaskByPhase() map[string]string {
	return map[string]string{
		"style_analysis":     "style_analysis",
		"content_planning":   "content_planning",
		"content_generation": "content_generation",
		"editing_qa":         "editing_qa",
	}
}

func contentRequestSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"title"},
		"properties": map[string]any{
			"title":         map[string]any{"type": "string", "minLength": 1},
			"content_type":  map[string]any{"type": "string"},
			"brief":         map[string]any{"type": "string"},
			"audience":      map[string]any{"type": "string"},
			"tone":          map[string]any{"type": "string"},
			"word_count":    map[string]any{"type": "integer", "minimum": 0},
			"language_code": map[string]any{"type": "string"},
		},
	}
}

func BlogPostDefinition() models.WorkflowDefinition {
	return models.WorkflowDefinition{
		WorkflowType:     "blog_post",
		Name:             "Blog Post",
		Description:      "Long-form blog article in the client's brand voice",
		Tasks:            contentPipelineTasks(8),
		CoordinationMode: models.CoordinationSequential,
		MaxParallelTasks: 1,
		TimeoutMinutes:   30,
		StateByTask:      pipelineStateByTask(),
		TaskByPhase:      pipelineTaskByPhase(),
		RequestSchema:    contentRequestSchema(),
	}
}

func SocialMediaDefinition() models.WorkflowDefinition {
	return models.WorkflowDefinition{
		WorkflowType:     "social_media",
		Name:             "Social Media",
		Description:      "Short-form social posts derived from a single brief",
		Tasks:            contentPipelineTasks(3),
		CoordinationMode: models.CoordinationCollaborative,
		MaxParallelTasks: 2,
		TimeoutMinutes:   15,
		StateByTask:      pipelineStateByTask(),
		TaskByPhase:      pipelineTaskByPhase(),
		RequestSchema:    contentRequestSchema(),
	}
}

func WebsiteContentDefinition() models.WorkflowDefinition {
	return models.WorkflowDefinition{
		WorkflowType:     "website_content",
		Name:             "Website Content",
		Description:      "Landing and product page copy with review emphasis",
		Tasks:            contentPipelineTasks(6),
		CoordinationMode: models.CoordinationReviewFocused,
		MaxParallelTasks: 1,
		TimeoutMinutes:   25,
		StateByTask:      pipelineStateByTask(),
		TaskByPhase:      pipelineTaskByPhase(),
		RequestSchema:    contentRequestSchema(),
	}
}
