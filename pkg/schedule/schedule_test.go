package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Validate(t *testing.T) {
	valid := Entry{
		ID:           "weekly-roundup",
		CronExpr:     "0 9 * * 1",
		WorkflowType: "blog_post",
	}
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.ID = ""
	assert.Error(t, missingID.Validate())

	missingCron := valid
	missingCron.CronExpr = ""
	assert.Error(t, missingCron.Validate())

	badCron := valid
	badCron.CronExpr = "every tuesday"
	assert.Error(t, badCron.Validate())

	missingType := valid
	missingType.WorkflowType = ""
	assert.Error(t, missingType.Validate())
}

func TestParseEntry(t *testing.T) {
	entry, err := ParseEntry("weekly|0 9 * * 1|blog_post|project-1|chat-1|Weekly roundup")
	require.NoError(t, err)
	assert.Equal(t, "weekly", entry.ID)
	assert.Equal(t, "0 9 * * 1", entry.CronExpr)
	assert.Equal(t, "blog_post", entry.WorkflowType)
	assert.Equal(t, "project-1", entry.ProjectID)
	assert.Equal(t, "chat-1", entry.ChatID)
	assert.Equal(t, "Weekly roundup", entry.ContentRequest.Title)

	minimal, err := ParseEntry("daily|0 2 * * *|social_media")
	require.NoError(t, err)
	assert.Empty(t, minimal.ProjectID)

	_, err = ParseEntry("not-enough-fields")
	assert.Error(t, err)

	_, err = ParseEntry("bad|every tuesday|blog_post")
	assert.Error(t, err)
}
