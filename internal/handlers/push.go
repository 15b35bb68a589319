package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/costpilot-dev/costpilot/internal/push"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/utils"
)

type SubscribePushRequest struct {
	Permission  string `json:"permission" binding:"required"`
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
}

// SubscribePush runs the device linking flow. The call blocks while the
// coordinator polls for a subscriber id; the terminal result is returned
// in one response.
func SubscribePush(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body SubscribePushRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.Platform == "" {
		body.Platform = "web"
	}

	result := deps.Coordinator.Subscribe(ctx.Request.Context(), userID, body.Permission, body.DeviceToken, body.Platform)

	status := http.StatusOK
	if result.State == push.StateFailed {
		status = http.StatusConflict
	}

	ctx.JSON(status, result)
}

func UnsubscribePush(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	err = deps.Coordinator.Unsubscribe(ctx.Request.Context(), userID)

	if err == store.ErrNotFound {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "No push link to remove"})
		return
	}

	if err != nil {
		log.Printf("Failed to unsubscribe user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Push link removed"})
}

func PushStatus(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	status := deps.Coordinator.Status(ctx.Request.Context(), userID, ctx.Query("permission"))

	ctx.JSON(http.StatusOK, status)
}
