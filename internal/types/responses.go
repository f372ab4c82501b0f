package types

import (
	"time"

	"github.com/taskhive-dev/taskhive/internal/models"
)

// Response shapes returned by the handlers. The password hash never leaves
// the models package through any of these.

type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	ID   uint         `json:"id"`
	Role string       `json:"role"`
	User UserResponse `json:"user"`
}

type WorkspaceResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	OwnerID     uint             `json:"owner_id"`
	Settings    any              `json:"settings,omitempty"`
	Members     []MemberResponse `json:"members,omitempty"`
}

type ProjectResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	WorkspaceID uint             `json:"workspace_id"`
	Members     []MemberResponse `json:"members,omitempty"`
	Tasks       []TaskResponse   `json:"tasks,omitempty"`
}

type TaskResponse struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	ProjectID   uint           `json:"project_id"`
	Assignees   []UserResponse `json:"assignees,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type NotificationResponse struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Status        string    `json:"status"`
	RelatedTaskID *uint     `json:"related_task_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func NewWorkspaceMemberResponse(member models.WorkspaceMember) MemberResponse {
	return MemberResponse{
		ID:   member.ID,
		Role: member.Role,
		User: NewUserResponse(member.User),
	}
}

func NewWorkspaceResponse(workspace models.Workspace) WorkspaceResponse {
	resp := WorkspaceResponse{
		ID:          workspace.ID,
		Name:        workspace.Name,
		Description: workspace.Description,
		OwnerID:     workspace.OwnerID,
	}

	if len(workspace.Settings) > 0 {
		resp.Settings = workspace.Settings
	}

	for _, member := range workspace.Members {
		resp.Members = append(resp.Members, NewWorkspaceMemberResponse(member))
	}

	return resp
}

func NewProjectMemberResponse(membership models.ProjectMembership) MemberResponse {
	return MemberResponse{
		ID:   membership.ID,
		Role: membership.Role,
		User: NewUserResponse(membership.User),
	}
}

func NewProjectResponse(project models.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		WorkspaceID: project.WorkspaceID,
	}

	for _, membership := range project.Members {
		resp.Members = append(resp.Members, NewProjectMemberResponse(membership))
	}

	for _, task := range project.Tasks {
		resp.Tasks = append(resp.Tasks, NewTaskResponse(task))
	}

	return resp
}

func NewTaskResponse(task models.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		ProjectID:   task.ProjectID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	for _, assignee := range task.Assignees {
		resp.Assignees = append(resp.Assignees, NewUserResponse(assignee.User))
	}

	return resp
}

func NewNotificationResponse(notification models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            notification.ID,
		Title:         notification.Title,
		Body:          notification.Body,
		Status:        notification.Status,
		RelatedTaskID: notification.RelatedTaskID,
		CreatedAt:     notification.CreatedAt,
	}
}
