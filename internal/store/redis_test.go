package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/costpilot-dev/costpilot/internal/models"
)

func setupTestStore(t *testing.T) *DocumentStore {
	t.Helper()

	s := miniredis.RunT(t)

	store, err := NewDocumentStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create document store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestCreateUserIsConflictFree(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.CreateUser(ctx, models.User{Name: "Dana", Email: "dana@example.com", Role: "project_manager", Status: "active"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Second synthesis for the same email must adopt the first record.
	second, err := store.CreateUser(ctx, models.User{Name: "Dana Again", Email: "dana@example.com", Role: "finance", Status: "active"})
	if err != nil {
		t.Fatalf("second CreateUser failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected existing id %d, got %d", first.ID, second.ID)
	}
	if second.Name != "Dana" {
		t.Fatalf("expected existing record to win, got name %q", second.Name)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected exactly one profile, got %d", len(users))
	}
}

func TestUpdateUserMovesEmailIndex(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, models.User{Name: "Rae", Email: "rae@example.com", Role: "finance", Status: "active"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.UpdateUser(ctx, user.ID, map[string]interface{}{"email": "rae@edfm.example"}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	if _, err := store.GetUserByEmail(ctx, "rae@example.com"); err != ErrNotFound {
		t.Fatalf("expected old email to be unindexed, got %v", err)
	}

	moved, err := store.GetUserByEmail(ctx, "rae@edfm.example")
	if err != nil {
		t.Fatalf("GetUserByEmail after move failed: %v", err)
	}
	if moved.ID != user.ID {
		t.Fatalf("expected id %d under new email, got %d", user.ID, moved.ID)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const owner = uint(42)

	first, err := store.Create(ctx, models.Notification{UserID: owner, Title: "one", Type: "system", Priority: "low"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.IsRead {
		t.Fatal("new notifications must start unread")
	}

	if _, err := store.Create(ctx, models.Notification{UserID: owner, Title: "two", Type: "deadline", Priority: "high"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.MarkRead(ctx, owner, first.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	// Marking again, or marking a missing id, is a no-op.
	if err := store.MarkRead(ctx, owner, first.ID); err != nil {
		t.Fatalf("repeat MarkRead failed: %v", err)
	}
	if err := store.MarkRead(ctx, owner, 9999); err != nil {
		t.Fatalf("MarkRead of missing id failed: %v", err)
	}

	notifications, err := store.ListByUser(ctx, owner)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}

	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}
	if unread != 1 {
		t.Fatalf("expected 1 unread, got %d", unread)
	}

	if err := store.MarkAllRead(ctx, owner); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}
	if err := store.MarkAllRead(ctx, owner); err != nil {
		t.Fatalf("second MarkAllRead failed: %v", err)
	}

	notifications, err = store.ListByUser(ctx, owner)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	for _, n := range notifications {
		if !n.IsRead {
			t.Fatalf("notification %d still unread after MarkAllRead", n.ID)
		}
	}

	if err := store.Delete(ctx, owner, first.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, owner, first.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestNotificationsAreScopedByOwner(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, err := store.Create(ctx, models.Notification{UserID: 1, Title: "mine", Type: "system", Priority: "low"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Another owner cannot delete it.
	if err := store.Delete(ctx, 2, n.ID); err != ErrNotFound {
		t.Fatalf("expected cross-owner delete to miss, got %v", err)
	}
}

func TestPushLinkUpsertKeepsOneLinkPerUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpsertLink(ctx, models.PushLink{UserID: 7, SubscriberID: "sub-a", Platform: "web"}); err != nil {
		t.Fatalf("UpsertLink failed: %v", err)
	}

	if err := store.UpsertLink(ctx, models.PushLink{UserID: 7, SubscriberID: "sub-b", Platform: "web"}); err != nil {
		t.Fatalf("second UpsertLink failed: %v", err)
	}

	link, err := store.GetLink(ctx, 7)
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	if link.SubscriberID != "sub-b" {
		t.Fatalf("expected last writer to win, got %q", link.SubscriberID)
	}

	if err := store.DeleteLink(ctx, 7); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}
	if _, err := store.GetLink(ctx, 7); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after unlink, got %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, models.User{Name: "Kim", Email: "kim@example.com", Role: "finance", Status: "active"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if _, err := store.Create(ctx, models.Notification{UserID: user.ID, Title: "hello", Type: "system", Priority: "low"}); err != nil {
		t.Fatalf("Create notification failed: %v", err)
	}
	if err := store.UpsertLink(ctx, models.PushLink{UserID: user.ID, SubscriberID: "sub-x", Platform: "web"}); err != nil {
		t.Fatalf("UpsertLink failed: %v", err)
	}

	if err := store.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := store.GetUser(ctx, user.ID); err != ErrNotFound {
		t.Fatalf("expected profile gone, got %v", err)
	}

	notifications, err := store.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(notifications) != 0 {
		t.Fatalf("expected notifications cascade-deleted, got %d", len(notifications))
	}

	if _, err := store.GetLink(ctx, user.ID); err != ErrNotFound {
		t.Fatalf("expected push link cascade-deleted, got %v", err)
	}
}
