package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	gorm.Model

	Name        string  `gorm:"not null"`
	Description string
	Status      string  `gorm:"not null;default:'pending'"` // "planning", "pending", "active", "completed", "rejected"
	Budget      float64 `gorm:"not null;default:0"`
	Spent       float64 `gorm:"not null;default:0"`
	StartDate   *time.Time
	EndDate     *time.Time
	ManagerID   uint `gorm:"not null;index"`

	// Relationships
	Manager User   `gorm:"foreignKey:ManagerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tasks   []Task `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
