package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/notifications"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/costpilot-dev/costpilot/internal/utils"
)

type BroadcastRequest struct {
	Title    string `json:"title" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Priority string `json:"priority"`
	Link     string `json:"link"`
	Role     string `json:"role"`
}

func ListNotifications(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	filter := notifications.Filter{
		Type:     ctx.Query("type"),
		Priority: ctx.Query("priority"),
	}

	if readParam := ctx.Query("read"); readParam != "" {
		read, err := strconv.ParseBool(readParam)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid read filter"})
			return
		}

		filter.Read = &read
	}

	list, err := deps.Tracker.List(ctx.Request.Context(), userID, filter)

	if err != nil {
		log.Printf("Failed to list notifications for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}

	response := make([]types.NotificationResponse, 0, len(list))

	for _, n := range list {
		response = append(response, notificationResponse(n))
	}

	ctx.JSON(http.StatusOK, response)
}

func UnreadCount(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	count, err := deps.Tracker.UnreadCount(ctx.Request.Context(), userID)

	if err != nil {
		log.Printf("Failed to count unread for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"unread": count})
}

func MarkNotificationRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notificationID, err := utils.GetNotificationID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := deps.Tracker.MarkRead(ctx.Request.Context(), userID, uint(notificationID)); err != nil {
		log.Printf("Failed to mark notification %d read: %v", notificationID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func MarkAllNotificationsRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := deps.Tracker.MarkAllRead(ctx.Request.Context(), userID); err != nil {
		log.Printf("Failed to mark all read for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

func DeleteNotification(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notificationID, err := utils.GetNotificationID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = deps.Tracker.Delete(ctx.Request.Context(), userID, uint(notificationID))

	if err == store.ErrNotFound {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	if err != nil {
		log.Printf("Failed to delete notification %d: %v", notificationID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// BroadcastNotification lets an admin push a system notice to every
// user, optionally narrowed to one role.
func BroadcastNotification(ctx *gin.Context) {
	var body BroadcastRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Priority == "" {
		body.Priority = types.PriorityMedium
	}

	var (
		users []models.User
		err   error
	)

	if body.Role != "" {
		users, err = deps.Profiles.ListUsersByRole(ctx.Request.Context(), body.Role)
	} else {
		users, err = deps.Profiles.ListUsers(ctx.Request.Context())
	}

	if err != nil {
		log.Printf("Failed to list broadcast recipients: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recipients"})
		return
	}

	var batch []models.Notification

	for _, user := range users {
		batch = append(batch, models.Notification{
			UserID:   user.ID,
			Title:    body.Title,
			Message:  body.Message,
			Type:     types.NotificationSystem,
			Priority: body.Priority,
			Link:     body.Link,
		})
	}

	if err := deps.Tracker.CreateBatch(ctx.Request.Context(), batch); err != nil {
		log.Printf("Failed to broadcast notification: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to broadcast notification"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"recipients": len(batch)})
}

func notificationResponse(n models.Notification) types.NotificationResponse {
	response := types.NotificationResponse{
		ID:       n.ID,
		UserID:   n.UserID,
		Title:    n.Title,
		Message:  n.Message,
		Type:     n.Type,
		Priority: n.Priority,
		IsRead:   n.IsRead,
		Link:     n.Link,
	}

	if ts := n.SortKey(); !ts.IsZero() {
		response.Timestamp = &ts
	}

	return response
}
