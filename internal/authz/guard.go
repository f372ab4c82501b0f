// Package authz holds the per-resource permission checks. Every check
// re-fetches current state and evaluates existence before permission, so a
// missing resource reports not-found even to a caller who would have been
// refused, and a present one reports forbidden before anything else runs.
package authz

import (
	"errors"
	"fmt"

	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/models"
	"gorm.io/gorm"
)

type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// RequireWorkspaceOwner allows only the workspace owner through. Ownership
// gates membership changes and project creation.
func (g *Guard) RequireWorkspaceOwner(workspaceID, userID uint) (*models.Workspace, error) {
	var workspace models.Workspace

	if err := g.db.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find workspace: %w", err)
	}

	if workspace.OwnerID != userID {
		return nil, apperr.ErrForbidden
	}

	return &workspace, nil
}

// RequireWorkspaceMember allows any member of the workspace through.
func (g *Guard) RequireWorkspaceMember(workspaceID, userID uint) (*models.Workspace, error) {
	var workspace models.Workspace

	if err := g.db.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find workspace: %w", err)
	}

	var count int64
	err := g.db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error

	if err != nil {
		return nil, fmt.Errorf("check workspace membership: %w", err)
	}

	if count == 0 {
		return nil, apperr.ErrForbidden
	}

	return &workspace, nil
}

// RequireProjectMember allows holders of a project membership through.
// Task mutations always run this check.
func (g *Guard) RequireProjectMember(projectID, userID uint) (*models.Project, error) {
	var project models.Project

	if err := g.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}

	var count int64
	err := g.db.Model(&models.ProjectMembership{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error

	if err != nil {
		return nil, fmt.Errorf("check project membership: %w", err)
	}

	if count == 0 {
		return nil, apperr.ErrForbidden
	}

	return &project, nil
}

// RequireProjectWorkspaceMember allows members of the project's workspace
// through. Project reads are gated at the workspace level.
func (g *Guard) RequireProjectWorkspaceMember(projectID, userID uint) (*models.Project, error) {
	var project models.Project

	if err := g.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}

	var count int64
	err := g.db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", project.WorkspaceID, userID).
		Count(&count).Error

	if err != nil {
		return nil, fmt.Errorf("check workspace membership: %w", err)
	}

	if count == 0 {
		return nil, apperr.ErrForbidden
	}

	return &project, nil
}

// RequireProjectWorkspaceOwner allows only the owner of the project's
// workspace through. Project membership changes are owner decisions.
func (g *Guard) RequireProjectWorkspaceOwner(projectID, userID uint) (*models.Project, error) {
	var project models.Project

	if err := g.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}

	var workspace models.Workspace
	if err := g.db.First(&workspace, project.WorkspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find workspace: %w", err)
	}

	if workspace.OwnerID != userID {
		return nil, apperr.ErrForbidden
	}

	return &project, nil
}

// RequireNotificationRecipient allows only the notification's recipient
// through.
func (g *Guard) RequireNotificationRecipient(notificationID, userID uint) (*models.Notification, error) {
	var notification models.Notification

	if err := g.db.First(&notification, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}

	if notification.RecipientID != userID {
		return nil, apperr.ErrForbidden
	}

	return &notification, nil
}
