package models

import "gorm.io/gorm"

// PushLink ties a provider-issued subscriber id to an application user.
// The unique index on UserID enforces at most one active link per user;
// writes go through an upsert so the latest device wins.
type PushLink struct {
	gorm.Model

	UserID       uint   `gorm:"not null;uniqueIndex"`
	SubscriberID string `gorm:"not null"`
	Platform     string `gorm:"not null;default:'web'"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
