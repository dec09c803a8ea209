package domain

import "time"

// ProcessedUpdate records a chat transport delivery that has already been
// handled, keyed by (chat_id, update_id). The chat transport redelivers
// updates it considers unacknowledged; a recorded row lets the webhook answer
// a redelivery without re-running side effects such as verification.
type ProcessedUpdate struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ChatID    int64     `gorm:"not null;uniqueIndex:ux_chat_update,priority:1"`
	UpdateID  int64     `gorm:"not null;uniqueIndex:ux_chat_update,priority:2"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
