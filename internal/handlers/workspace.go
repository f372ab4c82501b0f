package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/authz"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WorkspaceHandler struct {
	db    *gorm.DB
	guard *authz.Guard
}

func NewWorkspaceHandler(db *gorm.DB, guard *authz.Guard) *WorkspaceHandler {
	return &WorkspaceHandler{db: db, guard: guard}
}

type CreateWorkspaceRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Settings    json.RawMessage `json:"settings"`
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Create persists the workspace with its creator as the OWNER member, in
// one transaction.
func (h *WorkspaceHandler) Create(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body CreateWorkspaceRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	workspace := models.Workspace{
		Name:        body.Name,
		Description: body.Description,
		OwnerID:     userID,
	}

	if len(body.Settings) > 0 {
		workspace.Settings = datatypes.JSON(body.Settings)
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&workspace).Error; err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}

		member := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      userID,
			Role:        types.RoleOwner,
		}

		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}

		return nil
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	if err := h.db.Preload("Members.User").First(&workspace, workspace.ID).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, types.NewWorkspaceResponse(workspace))
}

// List returns the workspaces the caller is a member of.
func (h *WorkspaceHandler) List(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var workspaces []models.Workspace

	err = h.db.
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspace_members.user_id = ? AND workspace_members.deleted_at IS NULL", userID).
		Preload("Members.User").
		Find(&workspaces).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("list workspaces: %w", err))
		return
	}

	response := make([]types.WorkspaceResponse, 0, len(workspaces))

	for _, workspace := range workspaces {
		response = append(response, types.NewWorkspaceResponse(workspace))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *WorkspaceHandler) Get(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workspaceID, ok := parseIDParam(ctx, "workspace_id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireWorkspaceMember(workspaceID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var workspace models.Workspace
	if err := h.db.Preload("Members.User").First(&workspace, workspaceID).Error; err != nil {
		respondError(ctx, fmt.Errorf("load workspace: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, types.NewWorkspaceResponse(workspace))
}

// Projects lists the workspace's projects for members.
func (h *WorkspaceHandler) Projects(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workspaceID, ok := parseIDParam(ctx, "workspace_id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireWorkspaceMember(workspaceID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var projects []models.Project

	err = h.db.Where("workspace_id = ?", workspaceID).
		Preload("Members.User").
		Preload("Tasks").
		Find(&projects).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("list projects: %w", err))
		return
	}

	response := make([]types.ProjectResponse, 0, len(projects))

	for _, project := range projects {
		response = append(response, types.NewProjectResponse(project))
	}

	ctx.JSON(http.StatusOK, response)
}

// AddMember is an owner-only mutation.
func (h *WorkspaceHandler) AddMember(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workspaceID, ok := parseIDParam(ctx, "workspace_id")
	if !ok {
		return
	}

	var body AddMemberRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.guard.RequireWorkspaceOwner(workspaceID, userID); err != nil {
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
	err = h.db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, body.UserID).
		Count(&existing).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("check membership: %w", err))
		return
	}

	if existing > 0 {
		respondError(ctx, apperr.ErrConflict)
		return
	}

	member := models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      body.UserID,
		Role:        body.Role,
	}

	if err := h.db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(ctx, apperr.ErrConflict)
		} else {
			respondError(ctx, fmt.Errorf("create membership: %w", err))
		}
		return
	}

	member.User = target

	ctx.JSON(http.StatusCreated, types.NewWorkspaceMemberResponse(member))
}

func (h *WorkspaceHandler) UpdateMemberRole(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workspaceID, ok := parseIDParam(ctx, "workspace_id")
	if !ok {
		return
	}

	memberUserID, ok := parseIDParam(ctx, "user_id")
	if !ok {
		return
	}

	var body UpdateMemberRoleRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.guard.RequireWorkspaceOwner(workspaceID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var member models.WorkspaceMember
	err = h.db.Where("workspace_id = ? AND user_id = ?", workspaceID, memberUserID).
		Preload("User").
		First(&member).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, apperr.ErrNotFound)
		} else {
			respondError(ctx, fmt.Errorf("find membership: %w", err))
		}
		return
	}

	if err := h.db.Model(&member).Update("role", body.Role).Error; err != nil {
		respondError(ctx, fmt.Errorf("update role: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, types.NewWorkspaceMemberResponse(member))
}

func (h *WorkspaceHandler) RemoveMember(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workspaceID, ok := parseIDParam(ctx, "workspace_id")
	if !ok {
		return
	}

	memberUserID, ok := parseIDParam(ctx, "user_id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireWorkspaceOwner(workspaceID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var member models.WorkspaceMember
	err = h.db.Where("workspace_id = ? AND user_id = ?", workspaceID, memberUserID).
		First(&member).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, apperr.ErrNotFound)
		} else {
			respondError(ctx, fmt.Errorf("find membership: %w", err))
		}
		return
	}

	// Hard delete: the (workspace, user) slot in the unique index must free
	// up so the member can be re-added later.
	if err := h.db.Unscoped().Delete(&member).Error; err != nil {
		respondError(ctx, fmt.Errorf("delete membership: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// CreateProject is gated on workspace ownership.
func (h *WorkspaceHandler) CreateProject(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workspaceID, ok := parseIDParam(ctx, "workspace_id")
	if !ok {
		return
	}

	var body CreateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.guard.RequireWorkspaceOwner(workspaceID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	project := models.Project{
		Name:        body.Name,
		Description: body.Description,
		WorkspaceID: workspaceID,
	}

	if body.Status != "" {
		project.Status = body.Status
	}

	if err := h.db.Create(&project).Error; err != nil {
		respondError(ctx, fmt.Errorf("create project: %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, types.NewProjectResponse(project))
}
