package handler

import (
	"context"
	"net/http"

	"farmerconnect/internal/models"
	"farmerconnect/services/helpers"
	"farmerconnect/utils"

	"github.com/gin-gonic/gin"
)

// Page sizes for notification listings
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type NotificationServiceInterface interface {
	List(ctx context.Context, userID string, unreadOnly bool, page models.Page) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type NotificationHandler struct {
	service NotificationServiceInterface
}

func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListNotificationsHandler handles GET /notifications
func (h *NotificationHandler) ListNotificationsHandler(c *gin.Context) {
	userID, _ := helpers.CurrentUser(c)
	unread, err := helpers.QueryBool(c, "unread")
	if err != nil {
		helpers.RespondError(c, "ListNotificationsHandler", "invalid filter", err, map[string]any{"user_id": userID})
		return
	}
	page := helpers.ParsePage(c, defaultPageSize, maxPageSize)

	list, total, err := h.service.List(c.Request.Context(), userID, unread != nil && *unread, page)
	if err != nil {
		helpers.RespondError(c, "ListNotificationsHandler", "error listing notifications", err, map[string]any{"user_id": userID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, utils.NewPageData(list, page.Page, page.Limit, total), "notifications retrieved successfully")
}

// UnreadCountHandler handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCountHandler(c *gin.Context) {
	userID, _ := helpers.CurrentUser(c)
	n, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "UnreadCountHandler", "error counting notifications", err, map[string]any{"user_id": userID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, helpers.UnreadCountResponse{Unread: n}, "unread count retrieved successfully")
}

// MarkReadHandler handles PUT /notifications/:id/read
func (h *NotificationHandler) MarkReadHandler(c *gin.Context) {
	userID, _ := helpers.CurrentUser(c)
	id := c.Param("id")
	if err := h.service.MarkRead(c.Request.Context(), userID, id); err != nil {
		helpers.RespondError(c, "MarkReadHandler", "failed to mark notification read", err, map[string]any{"user_id": userID, "notification_id": id})
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"notification_id": id}, "notification marked as read")
}

// MarkAllReadHandler handles PUT /notifications/read-all
func (h *NotificationHandler) MarkAllReadHandler(c *gin.Context) {
	userID, _ := helpers.CurrentUser(c)
	n, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "MarkAllReadHandler", "failed to mark notifications read", err, map[string]any{"user_id": userID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"updated": n}, "notifications marked as read")
	helpers.LogSuccess("MarkAllReadHandler", "notifications marked as read", map[string]any{"user_id": userID, "updated": n})
}
