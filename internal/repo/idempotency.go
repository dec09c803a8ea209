// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// ProcessedUpdate model used to acknowledge chat transport redeliveries
// without re-running command side effects.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/domain"
)

// ErrDuplicate indicates that a unique key already exists: a registered
// handle/chat id for users, or an already processed (chat_id, update_id).
var ErrDuplicate = errors.New("duplicate")

// CreateProcessedUpdate records (chatID, updateID) as handled and returns
// ErrDuplicate when it was recorded before and has not expired yet.
func CreateProcessedUpdate(ctx context.Context, db *gorm.DB, chatID, updateID int64, ttl time.Duration, now time.Time) error {
	rec := &domain.ProcessedUpdate{
		ChatID:    chatID,
		UpdateID:  updateID,
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// An expired marker for the same key no longer counts.
		if err := tx.Where("chat_id = ? AND update_id = ? AND expires_at <= ?", chatID, updateID, now.UTC()).
			Delete(&domain.ProcessedUpdate{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// PurgeProcessedUpdates deletes expired markers and reports how many rows
// were removed.
func PurgeProcessedUpdates(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.ProcessedUpdate{})
	return res.RowsAffected, res.Error
}

// IsNotFound reports whether err denotes a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
