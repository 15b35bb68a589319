package models

import "gorm.io/gorm"

// Team membership is stored on users.team_id only; Members is a derived
// association, never written directly.
type Team struct {
	gorm.Model

	Name        string `gorm:"not null"`
	Description string

	// Relationships
	Members []User `gorm:"foreignKey:TeamID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
