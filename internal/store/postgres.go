package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/costpilot-dev/costpilot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time interface assertions.
var (
	_ ProfileStore      = (*PostgresStore)(nil)
	_ NotificationStore = (*PostgresStore)(nil)
	_ PushLinkStore     = (*PostgresStore)(nil)
)

// PostgresStore implements the store interfaces on a relational backend.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUser(ctx context.Context, id uint) (models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User

	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (s *PostgresStore) ListUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User

	if err := s.db.WithContext(ctx).Where("role = ?", role).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}

	return users, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&user).Error

	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	// On conflict the insert is skipped and no id is assigned; the
	// existing record is the system of record.
	if user.ID == 0 {
		return s.GetUserByEmail(ctx, user.Email)
	}

	return user, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)

	if result.Error != nil {
		return fmt.Errorf("update user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, id)

	if result.Error != nil {
		return fmt.Errorf("delete user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification

	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, nil
}

func (s *PostgresStore) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = 0
	n.IsRead = false

	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return models.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	return n, nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Create(&ns).Error; err != nil {
		return fmt.Errorf("create notification batch: %w", err)
	}

	return nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error

	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID uint) error {
	// Single UPDATE, so the batch transitions atomically.
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error

	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})

	if result.Error != nil {
		return fmt.Errorf("delete notification: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteAllByUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{}).Error

	if err != nil {
		return fmt.Errorf("delete notifications for user: %w", err)
	}

	return nil
}

func (s *PostgresStore) UpsertLink(ctx context.Context, link models.PushLink) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subscriber_id", "platform", "updated_at"}),
	}).Create(&link).Error

	if err != nil {
		return fmt.Errorf("upsert push link: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetLink(ctx context.Context, userID uint) (models.PushLink, error) {
	var link models.PushLink

	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PushLink{}, ErrNotFound
		}
		return models.PushLink{}, fmt.Errorf("get push link: %w", err)
	}

	return link, nil
}

func (s *PostgresStore) DeleteLink(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PushLink{}).Error

	if err != nil {
		return fmt.Errorf("delete push link: %w", err)
	}

	return nil
}
