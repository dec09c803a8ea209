// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the user directory: repository
// functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - A unique violation on handle or chat id yields ErrDuplicate.
//   - Other DB errors are propagated unchanged.
//
// Streak mutations are single UPDATE statements, so each is atomic at the row
// level and concurrent registrations of different handles never interfere.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a freshly verified user with a zero streak. It returns
// ErrDuplicate when the handle or the chat id is already registered; the
// existing row is left untouched.
func CreateUser(ctx context.Context, db *gorm.DB, handle string, chatID int64, rating int, rank string) (*domain.User, error) {
	u := &domain.User{
		Handle: handle,
		ChatID: chatID,
		Rating: rating,
		Rank:   rank,
		Streak: 0,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUserByHandle fetches a user by handle, or ErrNotFound.
func GetUserByHandle(ctx context.Context, db *gorm.DB, handle string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("handle = ?", handle).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByChatID fetches the user bound to a chat endpoint, or ErrNotFound.
func GetUserByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every registered user ordered by id.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// IncrementStreak adds one to the user's streak. It returns ErrNotFound when
// no row matched.
func IncrementStreak(ctx context.Context, db *gorm.DB, handle string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("handle = ?", handle).
		Update("streak", gorm.Expr("streak + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetStreak sets the user's streak to zero. It returns ErrNotFound when no
// row matched.
func ResetStreak(ctx context.Context, db *gorm.DB, handle string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("handle = ?", handle).
		Update("streak", 0)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Leaderboard returns up to limit users ordered by streak descending. Ties are
// broken by registration order so the result is stable.
func Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Order("streak desc").
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteUser hard-deletes a user (administrative removal). It returns
// ErrNotFound when no row matched.
func DeleteUser(ctx context.Context, db *gorm.DB, handle string) error {
	res := db.WithContext(ctx).Where("handle = ?", handle).Delete(&domain.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations;
	// Postgres reports "duplicate key value violates unique constraint".
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
