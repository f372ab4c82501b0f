package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/authz"
	"github.com/taskhive-dev/taskhive/internal/events"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db     *gorm.DB
	guard  *authz.Guard
	broker *events.Broker
}

func NewTaskHandler(db *gorm.DB, guard *authz.Guard, broker *events.Broker) *TaskHandler {
	return &TaskHandler{db: db, guard: guard, broker: broker}
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignTaskRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// MyTasks lists the tasks assigned to the caller, newest first.
func (h *TaskHandler) MyTasks(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var tasks []models.Task

	err = h.db.
		Joins("JOIN task_assignees ON task_assignees.task_id = tasks.id").
		Where("task_assignees.user_id = ? AND task_assignees.deleted_at IS NULL", userID).
		Preload("Assignees.User").
		Order("tasks.created_at DESC").
		Find(&tasks).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("list tasks: %w", err))
		return
	}

	response := make([]types.TaskResponse, 0, len(tasks))

	for _, task := range tasks {
		response = append(response, types.NewTaskResponse(task))
	}

	ctx.JSON(http.StatusOK, response)
}

// loadTask resolves the task and enforces project membership for the
// caller, existence first.
func (h *TaskHandler) loadTask(taskID, userID uint) (*models.Task, error) {
	var task models.Task

	if err := h.db.Preload("Assignees").First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}

	if _, err := h.guard.RequireProjectMember(task.ProjectID, userID); err != nil {
		return nil, err
	}

	return &task, nil
}

func (h *TaskHandler) Get(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, ok := parseIDParam(ctx, "task_id")
	if !ok {
		return
	}

	task, err := h.loadTask(taskID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if err := h.db.Preload("Assignees.User").First(task, task.ID).Error; err != nil {
		respondError(ctx, fmt.Errorf("load task: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, types.NewTaskResponse(*task))
}

// UpdateStatus changes the task status and notifies every assignee except
// the actor.
func (h *TaskHandler) UpdateStatus(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, ok := parseIDParam(ctx, "task_id")
	if !ok {
		return
	}

	var body UpdateTaskStatusRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.loadTask(taskID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Update("status", body.Status).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		for _, assignee := range task.Assignees {
			if assignee.UserID == userID {
				continue
			}

			relatedTaskID := task.ID
			notification := models.Notification{
				Title:         fmt.Sprintf("Task Updated: %s", task.Title),
				Body:          fmt.Sprintf("Status of %q is now %q", task.Title, body.Status),
				RecipientID:   assignee.UserID,
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

	var project models.Project
	if err := h.db.First(&project, task.ProjectID).Error; err != nil {
		respondError(ctx, fmt.Errorf("load project: %w", err))
		return
	}

	h.broker.Publish(events.Event{
		Type:        events.TaskUpdated,
		TaskID:      task.ID,
		ProjectID:   task.ProjectID,
		WorkspaceID: project.WorkspaceID,
	})

	if err := h.db.Preload("Assignees.User").First(task, task.ID).Error; err != nil {
		respondError(ctx, fmt.Errorf("load task: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, types.NewTaskResponse(*task))
}

// Assign adds a project member as an assignee and notifies them.
func (h *TaskHandler) Assign(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, ok := parseIDParam(ctx, "task_id")
	if !ok {
		return
	}

	var body AssignTaskRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.loadTask(taskID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	// Only project members can be assigned.
	var count int64
	err = h.db.Model(&models.ProjectMembership{}).
		Where("project_id = ? AND user_id = ?", task.ProjectID, body.UserID).
		Count(&count).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("check assignee membership: %w", err))
		return
	}

	if count == 0 {
		respondError(ctx, apperr.ErrForbidden)
		return
	}

	var existing int64
	err = h.db.Model(&models.TaskAssignee{}).
		Where("task_id = ? AND user_id = ?", task.ID, body.UserID).
		Count(&existing).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("check assignee: %w", err))
		return
	}

	if existing > 0 {
		respondError(ctx, apperr.ErrConflict)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		assignee := models.TaskAssignee{TaskID: task.ID, UserID: body.UserID}

		if err := tx.Create(&assignee).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrConflict
			}
			return fmt.Errorf("create assignee: %w", err)
		}

		relatedTaskID := task.ID
		notification := models.Notification{
			Title:         fmt.Sprintf("Task Assigned: %s", task.Title),
			Body:          fmt.Sprintf("You have been assigned to task %q", task.Title),
			RecipientID:   body.UserID,
			RelatedTaskID: &relatedTaskID,
		}

		if err := tx.Create(&notification).Error; err != nil {
			return fmt.Errorf("create notification: %w", err)
		}

		return nil
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	if err := h.db.Preload("Assignees.User").First(task, task.ID).Error; err != nil {
		respondError(ctx, fmt.Errorf("load task: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, types.NewTaskResponse(*task))
}

// Unassign removes an assignee and notifies the removed user.
func (h *TaskHandler) Unassign(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, ok := parseIDParam(ctx, "task_id")
	if !ok {
		return
	}

	assigneeUserID, ok := parseIDParam(ctx, "user_id")
	if !ok {
		return
	}

	task, err := h.loadTask(taskID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var assignee models.TaskAssignee
	err = h.db.Where("task_id = ? AND user_id = ?", taskID, assigneeUserID).
		First(&assignee).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, apperr.ErrNotFound)
		} else {
			respondError(ctx, fmt.Errorf("find assignee: %w", err))
		}
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Hard delete so the (task, user) pair can be recreated on a
		// later re-assignment.
		if err := tx.Unscoped().Delete(&assignee).Error; err != nil {
			return fmt.Errorf("delete assignee: %w", err)
		}

		relatedTaskID := task.ID
		notification := models.Notification{
			Title:         fmt.Sprintf("Task Unassigned: %s", task.Title),
			Body:          fmt.Sprintf("You have been unassigned from task %q", task.Title),
			RecipientID:   assigneeUserID,
			RelatedTaskID: &relatedTaskID,
		}

		if err := tx.Create(&notification).Error; err != nil {
			return fmt.Errorf("create notification: %w", err)
		}

		return nil
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	var project models.Project
	if err := h.db.First(&project, task.ProjectID).Error; err == nil {
		h.broker.Publish(events.Event{
			Type:        events.TaskUnassigned,
			TaskID:      task.ID,
			ProjectID:   task.ProjectID,
			WorkspaceID: project.WorkspaceID,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Assignee removed"})
}
