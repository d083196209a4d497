package models

// AgentRole identifies the capability required to execute a task.
type AgentRole string

const (
	RoleCoordinator      AgentRole = "coordinator"
	RoleStyleAnalyzer    AgentRole = "style_analysis"
	RoleContentPlanner   AgentRole = "content_planning"
	RoleContentGenerator AgentRole = "content_generation"
	RoleEditorQA         AgentRole = "editing_qa"
)

// KnownAgentRoles lists every role an agent runner must be able to serve.
func KnownAgentRoles() []AgentRole {
	return []AgentRole{
		RoleCoordinator,
		RoleStyleAnalyzer,
		RoleContentPlanner,
		RoleContentGenerator,
		RoleEditorQA,
	}
}
