package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	gorm.Model

	UserID   uint   `gorm:"not null;index"`
	Title    string `gorm:"not null"`
	Message  string
	Type     string `gorm:"not null"` // see types.Notification* constants
	Priority string `gorm:"not null;default:'medium'"`
	IsRead   bool   `gorm:"default:false;index"`
	Link     string

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

// SortKey is the delivery timestamp used for ordering. Records that never
// received a server timestamp report a zero time and sort last.
func (n Notification) SortKey() time.Time {
	return n.CreatedAt
}
