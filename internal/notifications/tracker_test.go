package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func gormModel(ts time.Time) gorm.Model {
	return gorm.Model{CreatedAt: ts}
}

// fakeStore is an in-memory NotificationStore for tracker tests.
type fakeStore struct {
	nextID  uint
	records []models.Notification
	failAll bool
}

func (f *fakeStore) ListByUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	out := make([]models.Notification, 0)
	for _, n := range f.records {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	f.nextID++
	n.ID = f.nextID
	n.IsRead = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.records = append(f.records, n)
	return n, nil
}

func (f *fakeStore) CreateBatch(ctx context.Context, ns []models.Notification) error {
	for _, n := range ns {
		if _, err := f.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) MarkRead(ctx context.Context, userID, id uint) error {
	for i, n := range f.records {
		if n.ID == id && n.UserID == userID {
			f.records[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeStore) MarkAllRead(ctx context.Context, userID uint) error {
	if f.failAll {
		return context.DeadlineExceeded
	}
	for i, n := range f.records {
		if n.UserID == userID {
			f.records[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, userID, id uint) error {
	for i, n := range f.records {
		if n.ID == id && n.UserID == userID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteAllByUser(ctx context.Context, userID uint) error {
	kept := f.records[:0]
	for _, n := range f.records {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	f.records = kept
	return nil
}

func newTestTracker() (*Tracker, *fakeStore) {
	fs := &fakeStore{}
	return NewTracker(fs, nil), fs
}

func TestUnreadCountTracksEveryMutation(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()
	const owner = uint(1)

	requireUnread := func(want int) {
		t.Helper()
		count, err := tracker.UnreadCount(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, want, count)
	}

	requireUnread(0)

	a, err := tracker.Create(ctx, models.Notification{UserID: owner, Title: "a", Type: types.NotificationSystem, Priority: types.PriorityLow})
	require.NoError(t, err)
	require.False(t, a.IsRead)
	requireUnread(1)

	b, err := tracker.Create(ctx, models.Notification{UserID: owner, Title: "b", Type: types.NotificationDeadline, Priority: types.PriorityHigh})
	require.NoError(t, err)
	requireUnread(2)

	require.NoError(t, tracker.MarkRead(ctx, owner, a.ID))
	requireUnread(1)

	// Marking the same record again changes nothing.
	require.NoError(t, tracker.MarkRead(ctx, owner, a.ID))
	requireUnread(1)

	require.NoError(t, tracker.Delete(ctx, owner, b.ID))
	requireUnread(0)
}

func TestMarkAllReadIsIdempotent(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()
	const owner = uint(1)

	for i := 0; i < 5; i++ {
		_, err := tracker.Create(ctx, models.Notification{UserID: owner, Title: "n", Type: types.NotificationSystem, Priority: types.PriorityLow})
		require.NoError(t, err)
	}

	require.NoError(t, tracker.MarkAllRead(ctx, owner))

	count, err := tracker.UnreadCount(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	// Second pass is a no-op.
	require.NoError(t, tracker.MarkAllRead(ctx, owner))

	count, err = tracker.UnreadCount(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestMarkAllReadSurfacesBatchFailure(t *testing.T) {
	tracker, fs := newTestTracker()
	ctx := context.Background()

	fs.failAll = true
	require.Error(t, tracker.MarkAllRead(ctx, 1))
}

func TestListOrdersNewestFirst(t *testing.T) {
	tracker, fs := newTestTracker()
	ctx := context.Background()
	const owner = uint(1)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := base.Add(1 * time.Hour)
	t2 := base.Add(2 * time.Hour)
	t3 := base.Add(3 * time.Hour)

	// Inserted as t3, t1, t2; expected view is t3, t2, t1.
	for _, ts := range []time.Time{t3, t1, t2} {
		_, err := tracker.Create(ctx, models.Notification{UserID: owner, Title: ts.String(), Type: types.NotificationSystem, Priority: types.PriorityLow, Model: gormModel(ts)})
		require.NoError(t, err)
	}

	// A record that never got a server timestamp sorts after everything.
	fs.nextID++
	fs.records = append(fs.records, models.Notification{UserID: owner, Title: "no-timestamp", Type: types.NotificationSystem, Priority: types.PriorityLow})
	fs.records[len(fs.records)-1].ID = fs.nextID

	got, err := tracker.List(ctx, owner, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, t3, got[0].CreatedAt)
	require.Equal(t, t2, got[1].CreatedAt)
	require.Equal(t, t1, got[2].CreatedAt)
	require.Equal(t, "no-timestamp", got[3].Title)
}

func TestListFilters(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()
	const owner = uint(1)

	seed := []models.Notification{
		{UserID: owner, Title: "d1", Type: types.NotificationDeadline, Priority: types.PriorityHigh},
		{UserID: owner, Title: "d2", Type: types.NotificationDeadline, Priority: types.PriorityCritical},
		{UserID: owner, Title: "s1", Type: types.NotificationSystem, Priority: types.PriorityHigh},
		{UserID: 99, Title: "other-user", Type: types.NotificationSystem, Priority: types.PriorityLow},
	}
	for _, n := range seed {
		_, err := tracker.Create(ctx, n)
		require.NoError(t, err)
	}

	deadline, err := tracker.List(ctx, owner, Filter{Type: types.NotificationDeadline})
	require.NoError(t, err)
	require.Len(t, deadline, 2)

	high, err := tracker.List(ctx, owner, Filter{Priority: types.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, high, 2)

	both, err := tracker.List(ctx, owner, Filter{Type: types.NotificationDeadline, Priority: types.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, both, 1)
	require.Equal(t, "d1", both[0].Title)

	first, err := tracker.List(ctx, owner, Filter{})
	require.NoError(t, err)
	require.NoError(t, tracker.MarkRead(ctx, owner, first[0].ID))

	readTrue := true
	read, err := tracker.List(ctx, owner, Filter{Read: &readTrue})
	require.NoError(t, err)
	require.Len(t, read, 1)

	readFalse := false
	unread, err := tracker.List(ctx, owner, Filter{Read: &readFalse})
	require.NoError(t, err)
	require.Len(t, unread, 2)
}
