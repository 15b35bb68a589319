package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

// Compile-time interface assertions.
var (
	_ ProfileStore      = (*DocumentStore)(nil)
	_ NotificationStore = (*DocumentStore)(nil)
	_ PushLinkStore     = (*DocumentStore)(nil)
)

// DocumentStore implements the store interfaces on Redis with JSON
// documents. Ids are allocated from counters so records keep the same
// numeric id shape as the relational adapter.
type DocumentStore struct {
	client *redis.Client
}

func NewDocumentStore(redisURL string) (*DocumentStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &DocumentStore{client: client}, nil
}

// NewDocumentStoreWithClient creates a store from an existing client.
func NewDocumentStoreWithClient(client *redis.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) Close() error {
	return s.client.Close()
}

func userKey(id uint) string          { return "user:" + strconv.FormatUint(uint64(id), 10) }
func emailKey(email string) string    { return "user:email:" + email }
func notificationsKey(id uint) string { return "notifications:" + strconv.FormatUint(uint64(id), 10) }
func pushLinkKey(id uint) string      { return "pushlink:" + strconv.FormatUint(uint64(id), 10) }

const (
	usersSetKey        = "users"
	userSeqKey         = "seq:user"
	notificationSeqKey = "seq:notification"
)

func (s *DocumentStore) getUserDoc(ctx context.Context, key string) (models.User, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user doc: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return models.User{}, fmt.Errorf("unmarshal user doc: %w", err)
	}

	return user, nil
}

func (s *DocumentStore) putUserDoc(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user doc: %w", err)
	}

	if err := s.client.Set(ctx, userKey(user.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("put user doc: %w", err)
	}

	return nil
}

func (s *DocumentStore) GetUser(ctx context.Context, id uint) (models.User, error) {
	return s.getUserDoc(ctx, userKey(id))
}

func (s *DocumentStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	idStr, err := s.client.Get(ctx, emailKey(email)).Result()
	if err == redis.Nil {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user email index: %w", err)
	}

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return models.User{}, fmt.Errorf("corrupt email index for %s: %w", email, err)
	}

	return s.GetUser(ctx, uint(id))
}

func (s *DocumentStore) ListUsers(ctx context.Context) ([]models.User, error) {
	ids, err := s.client.SMembers(ctx, usersSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}

	users := make([]models.User, 0, len(ids))

	for _, idStr := range ids {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue
		}

		user, err := s.GetUser(ctx, uint(id))
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (s *DocumentStore) ListUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	filtered := users[:0]
	for _, user := range users {
		if user.Role == role {
			filtered = append(filtered, user)
		}
	}

	return filtered, nil
}

func (s *DocumentStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	id, err := s.client.Incr(ctx, userSeqKey).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("allocate user id: %w", err)
	}

	user.ID = uint(id)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	// SETNX on the email index is the conflict guard: the loser of a
	// race observes the winner's id and adopts that record instead.
	ok, err := s.client.SetNX(ctx, emailKey(user.Email), strconv.FormatUint(uint64(user.ID), 10), 0).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("claim email index: %w", err)
	}

	if !ok {
		return s.GetUserByEmail(ctx, user.Email)
	}

	if err := s.putUserDoc(ctx, user); err != nil {
		return models.User{}, err
	}

	if err := s.client.SAdd(ctx, usersSetKey, strconv.FormatUint(uint64(user.ID), 10)).Err(); err != nil {
		return models.User{}, fmt.Errorf("index user: %w", err)
	}

	return user, nil
}

func (s *DocumentStore) UpdateUser(ctx context.Context, id uint, fields map[string]interface{}) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	oldEmail := user.Email
	applyUserFields(&user, fields)
	user.UpdatedAt = time.Now().UTC()

	if user.Email != oldEmail {
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, emailKey(oldEmail))
		pipe.Set(ctx, emailKey(user.Email), strconv.FormatUint(uint64(user.ID), 10), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("move email index: %w", err)
		}
	}

	return s.putUserDoc(ctx, user)
}

func (s *DocumentStore) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, userKey(id))
	pipe.Del(ctx, emailKey(user.Email))
	pipe.SRem(ctx, usersSetKey, strconv.FormatUint(uint64(id), 10))
	pipe.Del(ctx, notificationsKey(id))
	pipe.Del(ctx, pushLinkKey(id))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

func (s *DocumentStore) ListByUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	docs, err := s.client.HGetAll(ctx, notificationsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	notifications := make([]models.Notification, 0, len(docs))

	for _, raw := range docs {
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("unmarshal notification doc: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, nil
}

func (s *DocumentStore) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	id, err := s.client.Incr(ctx, notificationSeqKey).Result()
	if err != nil {
		return models.Notification{}, fmt.Errorf("allocate notification id: %w", err)
	}

	n.ID = uint(id)
	n.IsRead = false
	n.CreatedAt = time.Now().UTC()
	n.UpdatedAt = n.CreatedAt

	if err := s.putNotification(ctx, n); err != nil {
		return models.Notification{}, err
	}

	return n, nil
}

func (s *DocumentStore) CreateBatch(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	now := time.Now().UTC()
	pipe := s.client.TxPipeline()

	for i := range ns {
		id, err := s.client.Incr(ctx, notificationSeqKey).Result()
		if err != nil {
			return fmt.Errorf("allocate notification id: %w", err)
		}

		ns[i].ID = uint(id)
		ns[i].IsRead = false
		ns[i].CreatedAt = now
		ns[i].UpdatedAt = now

		raw, err := json.Marshal(ns[i])
		if err != nil {
			return fmt.Errorf("marshal notification doc: %w", err)
		}

		pipe.HSet(ctx, notificationsKey(ns[i].UserID), notificationField(ns[i].ID), raw)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create notification batch: %w", err)
	}

	return nil
}

func (s *DocumentStore) MarkRead(ctx context.Context, userID, id uint) error {
	n, err := s.getNotification(ctx, userID, id)
	if err == ErrNotFound {
		return nil // idempotent
	}
	if err != nil {
		return err
	}

	if n.IsRead {
		return nil
	}

	n.IsRead = true
	n.UpdatedAt = time.Now().UTC()

	return s.putNotification(ctx, n)
}

func (s *DocumentStore) MarkAllRead(ctx context.Context, userID uint) error {
	notifications, err := s.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	pipe := s.client.TxPipeline()
	touched := false

	for _, n := range notifications {
		if n.IsRead {
			continue
		}

		n.IsRead = true
		n.UpdatedAt = now

		raw, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal notification doc: %w", err)
		}

		pipe.HSet(ctx, notificationsKey(userID), notificationField(n.ID), raw)
		touched = true
	}

	if !touched {
		return nil
	}

	// MULTI/EXEC: the batch lands together or the call errors.
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, userID, id uint) error {
	removed, err := s.client.HDel(ctx, notificationsKey(userID), notificationField(id)).Result()
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	if removed == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *DocumentStore) DeleteAllByUser(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, notificationsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete notifications for user: %w", err)
	}

	return nil
}

func (s *DocumentStore) UpsertLink(ctx context.Context, link models.PushLink) error {
	link.CreatedAt = time.Now().UTC()
	link.UpdatedAt = link.CreatedAt

	raw, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal push link: %w", err)
	}

	// One key per user: SET is the upsert.
	if err := s.client.Set(ctx, pushLinkKey(link.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("upsert push link: %w", err)
	}

	return nil
}

func (s *DocumentStore) GetLink(ctx context.Context, userID uint) (models.PushLink, error) {
	raw, err := s.client.Get(ctx, pushLinkKey(userID)).Result()
	if err == redis.Nil {
		return models.PushLink{}, ErrNotFound
	}
	if err != nil {
		return models.PushLink{}, fmt.Errorf("get push link: %w", err)
	}

	var link models.PushLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return models.PushLink{}, fmt.Errorf("unmarshal push link: %w", err)
	}

	return link, nil
}

func (s *DocumentStore) DeleteLink(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, pushLinkKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete push link: %w", err)
	}

	return nil
}

func (s *DocumentStore) getNotification(ctx context.Context, userID, id uint) (models.Notification, error) {
	raw, err := s.client.HGet(ctx, notificationsKey(userID), notificationField(id)).Result()
	if err == redis.Nil {
		return models.Notification{}, ErrNotFound
	}
	if err != nil {
		return models.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	var n models.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return models.Notification{}, fmt.Errorf("unmarshal notification doc: %w", err)
	}

	return n, nil
}

func (s *DocumentStore) putNotification(ctx context.Context, n models.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification doc: %w", err)
	}

	if err := s.client.HSet(ctx, notificationsKey(n.UserID), notificationField(n.ID), raw).Err(); err != nil {
		return fmt.Errorf("put notification: %w", err)
	}

	return nil
}

func notificationField(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func asJSON(value interface{}) (datatypes.JSON, bool) {
	switch v := value.(type) {
	case datatypes.JSON:
		return v, true
	case []byte:
		return datatypes.JSON(v), true
	default:
		return nil, false
	}
}

// applyUserFields mirrors the column-name update maps the relational
// adapter accepts so callers can use one vocabulary for both backends.
func applyUserFields(user *models.User, fields map[string]interface{}) {
	for name, value := range fields {
		switch name {
		case "name":
			if v, ok := value.(string); ok {
				user.Name = v
			}
		case "email":
			if v, ok := value.(string); ok {
				user.Email = v
			}
		case "password_hash":
			if v, ok := value.(string); ok {
				user.PasswordHash = v
			}
		case "role":
			if v, ok := value.(string); ok {
				user.Role = v
			}
		case "status":
			if v, ok := value.(string); ok {
				user.Status = v
			}
		case "team_id":
			switch v := value.(type) {
			case uint:
				id := v
				user.TeamID = &id
			case *uint:
				user.TeamID = v
			case nil:
				user.TeamID = nil
			}
		case "privileges":
			if v, ok := asJSON(value); ok {
				user.Privileges = v
			}
		case "preferences":
			if v, ok := asJSON(value); ok {
				user.Preferences = v
			}
		}
	}
}
