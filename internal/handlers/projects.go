package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/costpilot-dev/costpilot/db"
	"github.com/costpilot-dev/costpilot/internal/access"
	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/prefs"
	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/costpilot-dev/costpilot/internal/utils"
)

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Budget      float64    `json:"budget"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type UpdateProjectRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Budget      *float64   `json:"budget"`
	Spent       *float64   `json:"spent"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// CreateProject registers a new project in pending state and asks every
// admin to approve or reject it.
func CreateProject(ctx *gin.Context) {
	var body CreateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	project := models.Project{
		Name:        body.Name,
		Description: body.Description,
		Status:      types.ProjectPending,
		Budget:      body.Budget,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
		ManagerID:   userID,
	}

	if err := db.DB.Create(&project).Error; err != nil {
		log.Printf("Failed to create project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	notifyAdminsOfPending(ctx, project)

	ctx.JSON(http.StatusCreated, projectResponse(project))
}

func ListProjects(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := db.DB

	// Project managers only see what they manage; admin and finance see
	// the whole portfolio.
	if access.Role(currentUser.Role) == access.RoleProjectManager {
		query = query.Where("manager_id = ?", currentUser.ID)
	}

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var projects []models.Project

	if err := query.Find(&projects).Error; err != nil {
		log.Printf("Failed to list projects: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	response := make([]types.ProjectResponse, 0, len(projects))

	for _, project := range projects {
		response = append(response, projectResponse(project))
	}

	ctx.JSON(http.StatusOK, response)
}

func GetProject(ctx *gin.Context) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, projectResponse(project))
}

func UpdateProject(ctx *gin.Context) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	var body UpdateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	wasOverrun := project.Spent > project.Budget

	updates := make(map[string]interface{})

	if body.Name != "" {
		updates["name"] = body.Name
	}

	if body.Description != "" {
		updates["description"] = body.Description
	}

	if body.Budget != nil {
		updates["budget"] = *body.Budget
		project.Budget = *body.Budget
	}

	if body.Spent != nil {
		updates["spent"] = *body.Spent
		project.Spent = *body.Spent
	}

	if body.StartDate != nil {
		updates["start_date"] = *body.StartDate
		project.StartDate = body.StartDate
	}

	if body.EndDate != nil {
		updates["end_date"] = *body.EndDate
		project.EndDate = body.EndDate
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if err := db.DB.Model(&project).Updates(updates).Error; err != nil {
		log.Printf("Failed to update project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	// Alert only on the transition into overrun, not on every update
	// while already over.
	if !wasOverrun && project.Spent > project.Budget {
		notifyCostOverrun(ctx, project)
	}

	ctx.JSON(http.StatusOK, projectResponse(project))
}

// ApproveProject moves a pending project to active and informs its
// manager of the outcome.
func ApproveProject(ctx *gin.Context) {
	decideProject(ctx, types.ProjectActive, "approved")
}

// RejectProject moves a pending project to rejected and informs its
// manager of the outcome.
func RejectProject(ctx *gin.Context) {
	decideProject(ctx, types.ProjectRejected, "rejected")
}

func decideProject(ctx *gin.Context, status, verdict string) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	if project.Status != types.ProjectPending {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Project is not awaiting approval"})
		return
	}

	if err := db.DB.Model(&project).Update("status", status).Error; err != nil {
		log.Printf("Failed to update project status: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	project.Status = status

	priority := types.PriorityMedium
	if verdict == "rejected" {
		priority = types.PriorityHigh
	}

	_, err := deps.Tracker.Create(ctx.Request.Context(), models.Notification{
		UserID:   project.ManagerID,
		Title:    fmt.Sprintf("Project %s", verdict),
		Message:  fmt.Sprintf("Your project %q was %s.", project.Name, verdict),
		Type:     types.NotificationApprovalResult,
		Priority: priority,
		Link:     fmt.Sprintf("/projects/%d", project.ID),
	})

	if err != nil {
		log.Printf("Failed to notify manager %d of approval result: %v", project.ManagerID, err)
	}

	ctx.JSON(http.StatusOK, projectResponse(project))
}

func DeleteProject(ctx *gin.Context) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	if err := db.DB.Delete(&project).Error; err != nil {
		log.Printf("Failed to delete project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// loadProject fetches the addressed project and enforces ownership:
// project managers may only touch their own projects.
func loadProject(ctx *gin.Context) (models.Project, bool) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Project{}, false
	}

	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return models.Project{}, false
	}

	var project models.Project

	if err := db.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			log.Printf("Failed to fetch project: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return models.Project{}, false
	}

	if access.Role(currentUser.Role) == access.RoleProjectManager && project.ManagerID != currentUser.ID {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return models.Project{}, false
	}

	return project, true
}

func notifyAdminsOfPending(ctx *gin.Context, project models.Project) {
	admins, err := deps.Profiles.ListUsersByRole(ctx.Request.Context(), string(access.RoleAdmin))

	if err != nil {
		log.Printf("Failed to list admins for approval request: %v", err)
		return
	}

	var batch []models.Notification

	for _, admin := range admins {
		batch = append(batch, models.Notification{
			UserID:   admin.ID,
			Title:    "Project awaiting approval",
			Message:  fmt.Sprintf("Project %q needs an approval decision.", project.Name),
			Type:     types.NotificationApprovalRequest,
			Priority: types.PriorityHigh,
			Link:     fmt.Sprintf("/projects/%d", project.ID),
		})
	}

	if err := deps.Tracker.CreateBatch(ctx.Request.Context(), batch); err != nil {
		log.Printf("Failed to create approval request notifications: %v", err)
	}
}

// notifyCostOverrun alerts the manager plus every user subscribed to
// the project in their preferences.
func notifyCostOverrun(ctx *gin.Context, project models.Project) {
	recipients := map[uint]bool{project.ManagerID: true}

	users, err := deps.Profiles.ListUsers(ctx.Request.Context())

	if err != nil {
		log.Printf("Failed to list users for overrun alert: %v", err)
	} else {
		for _, user := range users {
			if prefs.Decode(user.Preferences).SubscribedTo(project.ID) {
				recipients[user.ID] = true
			}
		}
	}

	overrun := project.Spent - project.Budget

	var batch []models.Notification

	for userID := range recipients {
		batch = append(batch, models.Notification{
			UserID:   userID,
			Title:    fmt.Sprintf("Cost overrun: %s", project.Name),
			Message:  fmt.Sprintf("Project %q is %.2f over budget.", project.Name, overrun),
			Type:     types.NotificationCostOverrun,
			Priority: types.PriorityCritical,
			Link:     fmt.Sprintf("/projects/%d", project.ID),
		})
	}

	if err := deps.Tracker.CreateBatch(ctx.Request.Context(), batch); err != nil {
		log.Printf("Failed to create cost overrun notifications: %v", err)
	}
}

func projectResponse(project models.Project) types.ProjectResponse {
	return types.ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		Budget:      project.Budget,
		Spent:       project.Spent,
		StartDate:   project.StartDate,
		EndDate:     project.EndDate,
		ManagerID:   project.ManagerID,
	}
}
