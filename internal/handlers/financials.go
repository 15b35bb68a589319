package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/costpilot-dev/costpilot/db"
	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/types"
)

type ProjectFinancials struct {
	ProjectID uint    `json:"project_id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Budget    float64 `json:"budget"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	Overrun   bool    `json:"overrun"`
}

// GetFinancials returns the budget position of every non-rejected
// project plus portfolio totals.
func GetFinancials(ctx *gin.Context) {
	var projects []models.Project

	err := db.DB.Where("status <> ?", types.ProjectRejected).Find(&projects).Error

	if err != nil {
		log.Printf("Failed to load projects for financials: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve financials"})
		return
	}

	var totalBudget, totalSpent float64
	rows := make([]ProjectFinancials, 0, len(projects))

	for _, project := range projects {
		totalBudget += project.Budget
		totalSpent += project.Spent

		rows = append(rows, ProjectFinancials{
			ProjectID: project.ID,
			Name:      project.Name,
			Status:    project.Status,
			Budget:    project.Budget,
			Spent:     project.Spent,
			Remaining: project.Budget - project.Spent,
			Overrun:   project.Spent > project.Budget,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"projects":     rows,
		"total_budget": totalBudget,
		"total_spent":  totalSpent,
	})
}
