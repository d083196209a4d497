package registry

import (
	"log/slog"
	"testing"

	"github.com/spinscribe/spinscribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetUnknownType(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, err := reg.Get("nope")
	require.Error(t, err)
	assert.True(t, IsUnknownWorkflowType(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	reg := NewRegistry(slog.Default())

	reg.Register(models.WorkflowDefinition{WorkflowType: "blog_post", Name: "v1"})
	reg.Register(models.WorkflowDefinition{WorkflowType: "blog_post", Name: "v2"})

	definition, err := reg.Get("blog_post")
	require.NoError(t, err)
	assert.Equal(t, "v2", definition.Name)

	require.Len(t, reg.List(), 1)
}

func TestRegistry_BuiltinDefinitions(t *testing.T) {
	reg := NewRegistry(slog.Default())
	RegisterBuiltinDefinitions(reg)

	for _, workflowType := range []string{"blog_post", "social_media", "website_content"} {
		definition, err := reg.Get(workflowType)
		require.NoError(t, err)
		assert.Len(t, definition.Tasks, 4)
		assert.Positive(t, definition.TimeoutMinutes)
		assert.NotNil(t, definition.RequestSchema)

		// The editing task gates on human approval in every builtin flow.
		last := definition.Tasks[len(definition.Tasks)-1]
		assert.Equal(t, "editing_qa", last.TaskID)
		assert.True(t, last.RequiresApproval)
	}

	message, ok := reg.HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, message, "3 workflow definitions")
}

func TestRegistry_ValidateRequest(t *testing.T) {
	reg := NewRegistry(slog.Default())
	RegisterBuiltinDefinitions(reg)

	err := reg.ValidateRequest("blog_post", map[string]any{"title": "Launch post"})
	require.NoError(t, err)

	err = reg.ValidateRequest("blog_post", map[string]any{"brief": "no title"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")

	err = reg.ValidateRequest("blog_post", map[string]any{"title": "x", "word_count": -1})
	require.Error(t, err)

	err = reg.ValidateRequest("nope", map[string]any{"title": "x"})
	assert.True(t, IsUnknownWorkflowType(err))
}

func TestRegistry_ValidateRequestWithoutSchema(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.Register(models.WorkflowDefinition{WorkflowType: "free_form"})

	assert.NoError(t, reg.ValidateRequest("free_form", map[string]any{"anything": true}))
}

func TestRegistry_HealthCheckEmpty(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, ok := reg.HealthCheck()
	assert.False(t, ok)
}
