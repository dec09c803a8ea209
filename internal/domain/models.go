// Package domain defines the core models of the trainer: the persisted user
// directory row (mapped with GORM) and the catalog, verification and
// assignment value types shared across the catalog, store, repository and
// service layers.
package domain

import (
	"strconv"
	"time"
)

// User is a verified account holder. Rows are created only by a successful
// handle verification and mutated afterwards only by the daily streak
// reconciliation.
//
// Fields:
//   - ID: autoincrement primary key.
//   - Handle: externally verified account name (unique).
//   - ChatID: chat endpoint used for message delivery (unique).
//   - Rating: rating captured at registration (floor rating when unrated).
//   - Rank: informational rank label.
//   - Streak: consecutive fully-completed assignment cycles.
type User struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Handle    string    `json:"handle"     gorm:"type:varchar(64);not null;uniqueIndex:ux_users_handle"`
	ChatID    int64     `json:"chat_id"    gorm:"not null;uniqueIndex:ux_users_chat_id"`
	Rating    int       `json:"rating"     gorm:"not null;default:0"`
	Rank      string    `json:"rank"       gorm:"type:varchar(64);not null;default:''"`
	Streak    int       `json:"streak"     gorm:"not null;default:0;index:idx_users_streak"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Problem is a catalog item. It is never persisted locally.
type Problem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name,omitempty"`
	Rating    *int     `json:"rating,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// ID returns the composite identifier "<contestId>_<index>".
func (p Problem) ID() string {
	return strconv.Itoa(p.ContestID) + "_" + p.Index
}

// HasTag reports whether the problem carries tag.
func (p Problem) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Verdicts reported by the submission history provider.
const (
	VerdictOK               = "OK"
	VerdictCompilationError = "COMPILATION_ERROR"
)

// Submission is one entry of a handle's submission history.
type Submission struct {
	ID        int64
	Problem   Problem
	Verdict   string
	CreatedAt time.Time
}

// Profile is the public account data of a handle. Rating is nil for unrated
// accounts.
type Profile struct {
	Handle string
	Rating *int
	Rank   string
}

// SolvedSet is the set of problem ids a handle has at least one accepted
// submission for.
type SolvedSet map[string]struct{}

// Has reports whether id is in the set.
func (s SolvedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
