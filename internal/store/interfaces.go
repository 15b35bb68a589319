// Package store abstracts persistence for the core records (profiles,
// notifications, push links) behind one set of interfaces with two
// interchangeable adapters: a relational one on Postgres and a
// document-style one on Redis. Business logic never talks to an adapter
// directly.
package store

import (
	"context"
	"errors"

	"github.com/costpilot-dev/costpilot/internal/models"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("record not found")

// ProfileStore exposes persistence for user profiles.
type ProfileStore interface {
	GetUser(ctx context.Context, id uint) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]models.User, error)

	// CreateUser inserts a profile keyed by email with conflict-free
	// semantics: if a profile for the email already exists, the existing
	// record is returned and nothing is written.
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	UpdateUser(ctx context.Context, id uint, fields map[string]interface{}) error
	DeleteUser(ctx context.Context, id uint) error
}

// NotificationStore exposes persistence for per-user notifications.
// All mutations are scoped by owner id, so cross-user interference is
// prevented by key scoping rather than locking.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID uint) ([]models.Notification, error)
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	CreateBatch(ctx context.Context, ns []models.Notification) error

	// MarkRead is idempotent; marking an already-read or missing record
	// is a no-op.
	MarkRead(ctx context.Context, userID, id uint) error

	// MarkAllRead flips every unread record for the owner in one batch.
	// Partial success is never silent: either all targeted records
	// transition or an error is returned.
	MarkAllRead(ctx context.Context, userID uint) error

	Delete(ctx context.Context, userID, id uint) error
	DeleteAllByUser(ctx context.Context, userID uint) error
}

// PushLinkStore exposes persistence for device-to-user push links.
type PushLinkStore interface {
	// UpsertLink replaces any prior link for the same user (last writer wins).
	UpsertLink(ctx context.Context, link models.PushLink) error
	GetLink(ctx context.Context, userID uint) (models.PushLink, error)
	DeleteLink(ctx context.Context, userID uint) error
}
