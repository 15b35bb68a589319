package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func GetProjectID(ctx *gin.Context) (uint64, error) {
	return parseIDParam(ctx, "project_id", "Project")
}

func GetTaskID(ctx *gin.Context) (uint64, error) {
	return parseIDParam(ctx, "task_id", "Task")
}

func GetTeamID(ctx *gin.Context) (uint64, error) {
	return parseIDParam(ctx, "team_id", "Team")
}

func GetUserID(ctx *gin.Context) (uint64, error) {
	return parseIDParam(ctx, "user_id", "User")
}

func GetNotificationID(ctx *gin.Context) (uint64, error) {
	return parseIDParam(ctx, "notification_id", "Notification")
}

func parseIDParam(ctx *gin.Context, param, label string) (uint64, error) {
	idStr := ctx.Param(param)

	if idStr == "" {
		return 0, errors.New(label + " ID not found")
	}

	id, err := strconv.ParseUint(idStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid " + label + " ID")
	}

	return id, nil
}
