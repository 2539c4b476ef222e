package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("not found")

type Storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Admin{}, &models.BotState{}); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// CreateUserIfAbsent inserts the user unless a row with the same id exists.
// It returns the stored row and whether it was created by this call.
func (s *Storage) CreateUserIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	var (
		stored  models.User
		created bool
	)
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).
			Create(user)
		if res.Error != nil {
			return fmt.Errorf("creating user: %w", res.Error)
		}
		created = res.RowsAffected > 0

		if err := tx.Where("id = ?", user.ID).First(&stored).Error; err != nil {
			return fmt.Errorf("getting user: %w", err)
		}
		return nil
	}); err != nil {
		return nil, false, fmt.Errorf("in tx: %w", err)
	}

	return &stored, created, nil
}

func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("getting user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	var result []*models.User
	if err := s.db.WithContext(ctx).Order("joined_at DESC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return result, nil
}

func (s *Storage) ListUsersByStatus(ctx context.Context, status models.UserStatus) ([]*models.User, error) {
	var result []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("status = ?", status).
		Order("trial_ends_at ASC").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing users by status: %w", err)
	}
	return result, nil
}

// ListExpiredTrials returns trial users whose trial ended at or before now, soonest first.
func (s *Storage) ListExpiredTrials(ctx context.Context, now time.Time) ([]*models.User, error) {
	var result []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("status = ? AND trial_ends_at <= ?", models.UserStatusTrial, now.UTC()).
		Order("trial_ends_at ASC").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing expired trials: %w", err)
	}
	return result, nil
}

// ListExpiringTrials returns trial users ending within window after now
// that were not warned yet, soonest first.
func (s *Storage) ListExpiringTrials(ctx context.Context, now time.Time, window time.Duration) ([]*models.User, error) {
	var result []*models.User
	if err := s.db.
		WithContext(ctx).
		Where(
			"status = ? AND trial_ends_at > ? AND trial_ends_at <= ? AND notified_expiry_soon = ?",
			models.UserStatusTrial,
			now.UTC(),
			now.Add(window).UTC(),
			false,
		).
		Order("trial_ends_at ASC").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing expiring trials: %w", err)
	}
	return result, nil
}

func (s *Storage) MarkExpiryNotified(ctx context.Context, userID int64) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("notified_expiry_soon", true).
		Error; err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// SetUserStatus reports false when the user row does not exist.
func (s *Storage) SetUserStatus(ctx context.Context, userID int64, status models.UserStatus) (bool, error) {
	return s.updateUser(ctx, userID, map[string]any{"status": status})
}

func (s *Storage) SetPresence(ctx context.Context, userID int64, inPrimary, inSecondary bool) (bool, error) {
	return s.updateUser(ctx, userID, map[string]any{
		"in_primary_chat":   inPrimary,
		"in_secondary_chat": inSecondary,
	})
}

func (s *Storage) SetChatPresence(ctx context.Context, userID int64, chat models.Chat, present bool) (bool, error) {
	column := "in_primary_chat"
	if chat == models.ChatSecondary {
		column = "in_secondary_chat"
	}
	return s.updateUser(ctx, userID, map[string]any{column: present})
}

func (s *Storage) SetAbsenceAlert(ctx context.Context, userID int64, absence models.Absence) (bool, error) {
	return s.updateUser(ctx, userID, map[string]any{"absence_alert": absence})
}

func (s *Storage) updateUser(ctx context.Context, userID int64, fields map[string]any) (bool, error) {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("updating user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", userID).Delete(&models.User{})
	if res.Error != nil {
		return false, fmt.Errorf("deleting user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) AddAdmin(ctx context.Context, adminID int64) (bool, error) {
	res := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Admin{ID: adminID})
	if res.Error != nil {
		return false, fmt.Errorf("creating admin: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) RemoveAdmin(ctx context.Context, adminID int64) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", adminID).Delete(&models.Admin{})
	if res.Error != nil {
		return false, fmt.Errorf("deleting admin: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) ListAdmins(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.Admin{}).
		Order("id ASC").
		Pluck("id", &ids).
		Error; err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	return ids, nil
}

func (s *Storage) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", userID).
		Count(&count).
		Error; err != nil {
		return false, fmt.Errorf("counting admins: %w", err)
	}
	return count > 0, nil
}

func (s *Storage) GetOrCreateGlobalState(ctx context.Context) (*models.BotState, error) {
	state := models.BotState{ID: models.GlobalStateID}
	if err := s.db.
		WithContext(ctx).
		Where(models.BotState{ID: models.GlobalStateID}).
		FirstOrCreate(&state).
		Error; err != nil {
		return nil, fmt.Errorf("getting global state: %w", err)
	}
	return &state, nil
}

func (s *Storage) UpdateLastUpdate(ctx context.Context, updateID int) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.BotState{}).
		Where("id = ? AND last_update_id < ?", models.GlobalStateID, updateID).
		Update("last_update_id", updateID).
		Error; err != nil {
		return fmt.Errorf("updating last update: %w", err)
	}
	return nil
}
