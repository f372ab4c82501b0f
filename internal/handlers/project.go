package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/authz"
	"github.com/taskhive-dev/taskhive/internal/events"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	db     *gorm.DB
	guard  *authz.Guard
	broker *events.Broker
}

func NewProjectHandler(db *gorm.DB, guard *authz.Guard, broker *events.Broker) *ProjectHandler {
	return &ProjectHandler{db: db, guard: guard, broker: broker}
}

type AddProjectMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type AddTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	AssigneeID  uint   `json:"assignee_id"`
}

func (h *ProjectHandler) Get(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	projectID, ok := parseIDParam(ctx, "project_id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireProjectWorkspaceMember(projectID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var project models.Project
	err = h.db.Preload("Members.User").
		Preload("Tasks.Assignees.User").
		First(&project, projectID).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("load project: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, types.NewProjectResponse(project))
}

// AddMember grants project membership; only the workspace owner may.
func (h *ProjectHandler) AddMember(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	projectID, ok := parseIDParam(ctx, "project_id")
	if !ok {
		return
	}

	var body AddProjectMemberRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.guard.RequireProjectWorkspaceOwner(projectID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var target models.User
	if err := h.db.First(&target, body.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, apperr.ErrNotFound)
		} else {
			respondError(ctx, fmt.Errorf("find user: %w", err))
		}
		return
	}

	var existing int64
	err = h.db.Model(&models.ProjectMembership{}).
		Where("project_id = ? AND user_id = ?", projectID, body.UserID).
		Count(&existing).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("check project membership: %w", err))
		return
	}

	if existing > 0 {
		respondError(ctx, apperr.ErrConflict)
		return
	}

	membership := models.ProjectMembership{
		ProjectID: projectID,
		UserID:    body.UserID,
		Role:      body.Role,
	}

	if err := h.db.Create(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(ctx, apperr.ErrConflict)
		} else {
			respondError(ctx, fmt.Errorf("create project membership: %w", err))
		}
		return
	}

	membership.User = target

	ctx.JSON(http.StatusCreated, types.NewProjectMemberResponse(membership))
}

func (h *ProjectHandler) RemoveMember(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	projectID, ok := parseIDParam(ctx, "project_id")
	if !ok {
		return
	}

	memberUserID, ok := parseIDParam(ctx, "user_id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireProjectWorkspaceOwner(projectID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var membership models.ProjectMembership
	err = h.db.Where("project_id = ? AND user_id = ?", projectID, memberUserID).
		First(&membership).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, apperr.ErrNotFound)
		} else {
			respondError(ctx, fmt.Errorf("find project membership: %w", err))
		}
		return
	}

	// Hard delete so the (project, user) pair can be recreated.
	if err := h.db.Unscoped().Delete(&membership).Error; err != nil {
		respondError(ctx, fmt.Errorf("delete project membership: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// Tasks lists the project's tasks, optionally filtered by status.
func (h *ProjectHandler) Tasks(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	projectID, ok := parseIDParam(ctx, "project_id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireProjectMember(projectID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	query := h.db.Where("project_id = ?", projectID)

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var tasks []models.Task
	if err := query.Preload("Assignees.User").Find(&tasks).Error; err != nil {
		respondError(ctx, fmt.Errorf("list tasks: %w", err))
		return
	}

	response := make([]types.TaskResponse, 0, len(tasks))

	for _, task := range tasks {
		response = append(response, types.NewTaskResponse(task))
	}

	ctx.JSON(http.StatusOK, response)
}

// AddTask creates a task in the project. Project membership is required,
// including for the optional initial assignee. The task-added event fires
// only after the transaction commits.
func (h *ProjectHandler) AddTask(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	projectID, ok := parseIDParam(ctx, "project_id")
	if !ok {
		return
	}

	var body AddTaskRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	project, err := h.guard.RequireProjectMember(projectID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	task := models.Task{
		Title:       body.Title,
		Description: body.Description,
		ProjectID:   projectID,
	}

	if body.Status != "" {
		task.Status = body.Status
	}

	if body.Priority != "" {
		task.Priority = body.Priority
	}

	if body.DueDate != "" {
		dueDate, err := parseDueDate(body.DueDate)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date"})
			return
		}
		task.DueDate = &dueDate
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		if body.AssigneeID != 0 {
			var count int64
			err := tx.Model(&models.ProjectMembership{}).
				Where("project_id = ? AND user_id = ?", projectID, body.AssigneeID).
				Count(&count).Error

			if err != nil {
				return fmt.Errorf("check assignee membership: %w", err)
			}

			if count == 0 {
				return apperr.ErrForbidden
			}

			assignee := models.TaskAssignee{TaskID: task.ID, UserID: body.AssigneeID}
			if err := tx.Create(&assignee).Error; err != nil {
				return fmt.Errorf("create assignee: %w", err)
			}

			relatedTaskID := task.ID
			notification := models.Notification{
				Title:         fmt.Sprintf("Task Assigned: %s", task.Title),
				Body:          fmt.Sprintf("You have been assigned to task %q", task.Title),
				RecipientID:   body.AssigneeID,
				RelatedTaskID: &relatedTaskID,
			}

			if err := tx.Create(&notification).Error; err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	h.broker.Publish(events.Event{
		Type:        events.TaskAdded,
		TaskID:      task.ID,
		ProjectID:   projectID,
		WorkspaceID: project.WorkspaceID,
	})

	if err := h.db.Preload("Assignees.User").First(&task, task.ID).Error; err != nil {
		respondError(ctx, fmt.Errorf("load task: %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, types.NewTaskResponse(task))
}

// parseDueDate accepts RFC 3339 or a bare date.
func parseDueDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
