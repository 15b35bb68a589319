package types

import (
	"os"
	"strings"
)

const ContextUserKey = "user"

// Notification types
const (
	NotificationApprovalRequest = "approval_request"
	NotificationApprovalResult  = "approval_result"
	NotificationCostOverrun     = "cost_overrun"
	NotificationTaskUpdate      = "task_update"
	NotificationSystem          = "system"
	NotificationDeadline        = "deadline"
)

// Notification priorities
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// User account status
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Project status
const (
	ProjectPlanning  = "planning"
	ProjectPending   = "pending"
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectRejected  = "rejected"
)

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
