package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/costpilot-dev/costpilot/internal/access"
	"github.com/costpilot-dev/costpilot/internal/bootstrap"
	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/costpilot-dev/costpilot/internal/utils"
)

type AdminCreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

type AdminUpdateUserRequest struct {
	Name       string    `json:"name"`
	Role       *string   `json:"role"`
	Status     *string   `json:"status"`
	TeamID     *uint     `json:"team_id"`
	Privileges *[]string `json:"privileges"`
}

func ListUsers(ctx *gin.Context) {
	users, err := deps.Profiles.ListUsers(ctx.Request.Context())

	if err != nil {
		log.Printf("Failed to list users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	response := make([]types.UserResponse, 0, len(users))

	for _, user := range users {
		response = append(response, userResponse(user))
	}

	ctx.JSON(http.StatusOK, response)
}

func GetUser(ctx *gin.Context) {
	userID, err := utils.GetUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := deps.Profiles.GetUser(ctx.Request.Context(), uint(userID))

	if err == store.ErrNotFound {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err != nil {
		log.Printf("Failed to fetch user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

func AdminCreateUser(ctx *gin.Context) {
	var body AdminCreateUserRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	_, err := deps.Profiles.GetUserByEmail(ctx.Request.Context(), body.Email)

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	}

	if err != store.ErrNotFound {
		log.Printf("Failed to check existing user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user, err := deps.Profiles.CreateUser(ctx.Request.Context(), bootstrap.Sanitize(models.User{
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: string(passwordHash),
		Role:         body.Role,
		Status:       types.StatusActive,
	}))

	if err != nil {
		log.Printf("Failed to create user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": userResponse(user)})
}

func AdminUpdateUser(ctx *gin.Context) {
	userID, err := utils.GetUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := deps.Profiles.GetUser(ctx.Request.Context(), uint(userID))

	if err == store.ErrNotFound {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err != nil {
		log.Printf("Failed to fetch user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var body AdminUpdateUserRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates := make(map[string]interface{})
	var announcements []models.Notification

	if body.Name != "" {
		updates["name"] = strings.TrimSpace(body.Name)
	}

	if body.Role != nil {
		role := string(access.NormalizeRole(*body.Role))

		if role != user.Role {
			updates["role"] = role
			announcements = append(announcements, models.Notification{
				UserID:   user.ID,
				Title:    "Role updated",
				Message:  fmt.Sprintf("Your role was changed to %s.", role),
				Type:     types.NotificationSystem,
				Priority: types.PriorityMedium,
				Link:     "/settings",
			})
		}
	}

	if body.Status != nil {
		status := *body.Status

		if status != types.StatusActive && status != types.StatusInactive {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}

		updates["status"] = status
	}

	if body.TeamID != nil {
		updates["team_id"] = *body.TeamID
		announcements = append(announcements, models.Notification{
			UserID:   user.ID,
			Title:    "Team assignment updated",
			Message:  "You were assigned to a new team.",
			Type:     types.NotificationSystem,
			Priority: types.PriorityLow,
			Link:     "/settings",
		})
	}

	if body.Privileges != nil {
		encoded, err := json.Marshal(*body.Privileges)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid privileges"})
			return
		}

		updates["privileges"] = datatypes.JSON(encoded)
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if err := deps.Profiles.UpdateUser(ctx.Request.Context(), user.ID, updates); err != nil {
		log.Printf("Failed to update user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	for _, n := range announcements {
		if _, err := deps.Tracker.Create(ctx.Request.Context(), n); err != nil {
			log.Printf("Failed to notify user %d of account change: %v", user.ID, err)
		}
	}

	updated, err := deps.Profiles.GetUser(ctx.Request.Context(), user.ID)

	if err != nil {
		log.Printf("Failed to fetch updated user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(updated)})
}

func AdminDeleteUser(ctx *gin.Context) {
	userID, err := utils.GetUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if currentUser.ID == uint(userID) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account from the admin panel"})
		return
	}

	err = deps.Profiles.DeleteUser(ctx.Request.Context(), uint(userID))

	if err == store.ErrNotFound {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err != nil {
		log.Printf("Failed to delete user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
