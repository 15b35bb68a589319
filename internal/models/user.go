package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:'project_manager'"`
	Status       string `gorm:"not null;default:'active'"`
	TeamID       *uint  `gorm:"index"`

	// Fine-grained capability ids, checked only for non-admins.
	Privileges datatypes.JSON `gorm:"type:jsonb"`

	// Partial objects merge over documented defaults, see internal/prefs.
	Preferences datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	Team            *Team          `gorm:"foreignKey:TeamID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	ManagedProjects []Project      `gorm:"foreignKey:ManagerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifications   []Notification `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	PushLink        *PushLink      `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
