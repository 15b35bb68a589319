// Package notifications maintains the live notification state for each
// user: ordering, filtering, unread counts, and the read/delete
// lifecycle. Counts and views are always re-derived from the stored
// snapshot so concurrent remote writes can never leave them stale.
package notifications

import (
	"context"
	"sort"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
)

// Filter narrows a notification view. Empty string means "all"; a nil
// Read pointer means both read and unread.
type Filter struct {
	Type     string
	Priority string
	Read     *bool
}

type Tracker struct {
	store store.NotificationStore
	hub   *Hub
}

func NewTracker(s store.NotificationStore, hub *Hub) *Tracker {
	return &Tracker{store: s, hub: hub}
}

// List returns the owner's notifications newest-first with the filter
// applied. Records without a timestamp sort after all timestamped ones,
// keeping their relative order.
func (t *Tracker) List(ctx context.Context, userID uint, f Filter) ([]models.Notification, error) {
	notifications, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	SortByTimestamp(notifications)

	return ApplyFilter(notifications, f), nil
}

// UnreadCount recounts from the full stored snapshot on every call.
func (t *Tracker) UnreadCount(ctx context.Context, userID uint) (int, error) {
	notifications, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, n := range notifications {
		if !n.IsRead {
			count++
		}
	}

	return count, nil
}

// Create inserts a new unread record and wakes the owner's live
// subscriptions.
func (t *Tracker) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.IsRead = false

	created, err := t.store.Create(ctx, n)
	if err != nil {
		return models.Notification{}, err
	}

	t.hub.NotifyRefresh(created.UserID)

	return created, nil
}

// CreateBatch inserts many records in one write and wakes each affected
// owner once.
func (t *Tracker) CreateBatch(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	if err := t.store.CreateBatch(ctx, ns); err != nil {
		return err
	}

	owners := make(map[uint]bool, len(ns))
	for _, n := range ns {
		if !owners[n.UserID] {
			owners[n.UserID] = true
			t.hub.NotifyRefresh(n.UserID)
		}
	}

	return nil
}

// MarkRead flips one record; repeating it is a no-op.
func (t *Tracker) MarkRead(ctx context.Context, userID, id uint) error {
	if err := t.store.MarkRead(ctx, userID, id); err != nil {
		return err
	}

	t.hub.NotifyRefresh(userID)

	return nil
}

// MarkAllRead flips every unread record for the owner in one batch.
func (t *Tracker) MarkAllRead(ctx context.Context, userID uint) error {
	if err := t.store.MarkAllRead(ctx, userID); err != nil {
		return err
	}

	t.hub.NotifyRefresh(userID)

	return nil
}

// Delete removes a record permanently; there is no undo.
func (t *Tracker) Delete(ctx context.Context, userID, id uint) error {
	if err := t.store.Delete(ctx, userID, id); err != nil {
		return err
	}

	t.hub.NotifyRefresh(userID)

	return nil
}

// SortByTimestamp orders newest-first. Zero timestamps sort last; the
// sort is stable so equal and missing timestamps keep insertion order.
func SortByTimestamp(ns []models.Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		ti, tj := ns[i].SortKey(), ns[j].SortKey()

		if ti.IsZero() {
			return false
		}
		if tj.IsZero() {
			return true
		}

		return ti.After(tj)
	})
}

// ApplyFilter keeps records matching every set dimension.
func ApplyFilter(ns []models.Notification, f Filter) []models.Notification {
	if f.Type == "" && f.Priority == "" && f.Read == nil {
		return ns
	}

	filtered := make([]models.Notification, 0, len(ns))

	for _, n := range ns {
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.Priority != "" && n.Priority != f.Priority {
			continue
		}
		if f.Read != nil && n.IsRead != *f.Read {
			continue
		}
		filtered = append(filtered, n)
	}

	return filtered
}
