package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/authz"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/types"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	db    *gorm.DB
	guard *authz.Guard
}

func NewNotificationHandler(db *gorm.DB, guard *authz.Guard) *NotificationHandler {
	return &NotificationHandler{db: db, guard: guard}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var notifications []models.Notification

	err = h.db.Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error

	if err != nil {
		respondError(ctx, fmt.Errorf("list notifications: %w", err))
		return
	}

	response := make([]types.NotificationResponse, 0, len(notifications))

	for _, notification := range notifications {
		response = append(response, types.NewNotificationResponse(notification))
	}

	ctx.JSON(http.StatusOK, response)
}

// MarkSeen is a recipient-only mutation.
func (h *NotificationHandler) MarkSeen(ctx *gin.Context) {
	userID, err := middleware.CurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notificationID, ok := parseIDParam(ctx, "notification_id")
	if !ok {
		return
	}

	notification, err := h.guard.RequireNotificationRecipient(notificationID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if err := h.db.Model(notification).Update("status", types.NotificationSeen).Error; err != nil {
		respondError(ctx, fmt.Errorf("mark notification seen: %w", err))
		return
	}

	ctx.JSON(http.StatusOK, types.NewNotificationResponse(*notification))
}
