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
	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/costpilot-dev/costpilot/internal/utils"
)

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	AssigneeID  *uint      `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *uint      `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

func CreateTask(ctx *gin.Context) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	var body CreateTaskRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task := models.Task{
		ProjectID:   project.ID,
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		AssigneeID:  body.AssigneeID,
		DueDate:     body.DueDate,
	}

	if task.Priority == "" {
		task.Priority = types.PriorityMedium
	}

	if err := db.DB.Create(&task).Error; err != nil {
		log.Printf("Failed to create task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	notifyAssignee(ctx, project, task, "You were assigned a new task")

	ctx.JSON(http.StatusCreated, taskResponse(task))
}

func ListTasks(ctx *gin.Context) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	var tasks []models.Task

	if err := db.DB.Where("project_id = ?", project.ID).Find(&tasks).Error; err != nil {
		log.Printf("Failed to list tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := make([]types.TaskResponse, 0, len(tasks))

	for _, task := range tasks {
		response = append(response, taskResponse(task))
	}

	ctx.JSON(http.StatusOK, response)
}

func UpdateTask(ctx *gin.Context) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var task models.Task

	if err := db.DB.Where("id = ? AND project_id = ?", taskID, project.ID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			log.Printf("Failed to fetch task: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return
	}

	var body UpdateTaskRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	previousAssignee := task.AssigneeID

	updates := make(map[string]interface{})

	if body.Title != "" {
		updates["title"] = body.Title
	}

	if body.Description != "" {
		updates["description"] = body.Description
	}

	if body.Status != "" {
		updates["status"] = body.Status
		task.Status = body.Status
	}

	if body.Priority != "" {
		updates["priority"] = body.Priority
		task.Priority = body.Priority
	}

	if body.AssigneeID != nil {
		updates["assignee_id"] = *body.AssigneeID
		task.AssigneeID = body.AssigneeID
	}

	if body.DueDate != nil {
		updates["due_date"] = *body.DueDate
		task.DueDate = body.DueDate
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if err := db.DB.Model(&task).Updates(updates).Error; err != nil {
		log.Printf("Failed to update task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	if body.AssigneeID != nil && (previousAssignee == nil || *previousAssignee != *body.AssigneeID) {
		notifyAssignee(ctx, project, task, "You were assigned a task")
	} else {
		notifyAssignee(ctx, project, task, "A task assigned to you was updated")
	}

	ctx.JSON(http.StatusOK, taskResponse(task))
}

func DeleteTask(ctx *gin.Context) {
	project, ok := loadProject(ctx)

	if !ok {
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := db.DB.Where("project_id = ?", project.ID).Delete(&models.Task{}, taskID)

	if result.Error != nil {
		log.Printf("Failed to delete task: %v", result.Error)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	if result.RowsAffected == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// notifyAssignee tells the task's assignee about a change. Self-inflicted
// updates are skipped; nobody needs an alert about their own edit.
func notifyAssignee(ctx *gin.Context, project models.Project, task models.Task, title string) {
	if task.AssigneeID == nil {
		return
	}

	currentUserID, err := utils.GetCurrentUserID(ctx)

	if err == nil && currentUserID == *task.AssigneeID {
		return
	}

	_, err = deps.Tracker.Create(ctx.Request.Context(), models.Notification{
		UserID:   *task.AssigneeID,
		Title:    title,
		Message:  fmt.Sprintf("Task %q in project %q.", task.Title, project.Name),
		Type:     types.NotificationTaskUpdate,
		Priority: task.Priority,
		Link:     fmt.Sprintf("/projects/%d", project.ID),
	})

	if err != nil {
		log.Printf("Failed to notify assignee %d: %v", *task.AssigneeID, err)
	}
}

func taskResponse(task models.Task) types.TaskResponse {
	return types.TaskResponse{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		AssigneeID:  task.AssigneeID,
		DueDate:     task.DueDate,
	}
}
