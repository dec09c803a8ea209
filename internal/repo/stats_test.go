package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/cptrainer/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestUsersStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := UsersStats(context.Background(), db); err == nil {
		t.Fatalf("expected error due to missing users table")
	}
}

func TestUsersStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	count, maxAt, err := UsersStats(context.Background(), db)
	if err != nil {
		t.Fatalf("UsersStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestUsersStats_CountAndMax(t *testing.T) {
	db := newTestDB(t, &domain.User{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max
	t3 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{t1, t2, t3} {
		u := domain.User{Handle: fmt.Sprintf("u%d", i), ChatID: int64(i + 1), Rating: 800, CreatedAt: at, UpdatedAt: at}
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, maxAt, err := UsersStats(context.Background(), db)
	if err != nil {
		t.Fatalf("UsersStats: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d; want 3", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("maxUpdatedAt = %v; want %v", maxAt, t2)
	}

	// A streak change moves the max forward.
	if err := IncrementStreak(context.Background(), db, "u0"); err != nil {
		t.Fatalf("IncrementStreak: %v", err)
	}
	_, maxAt2, err := UsersStats(context.Background(), db)
	if err != nil {
		t.Fatalf("UsersStats: %v", err)
	}
	if !maxAt2.After(t2) {
		t.Fatalf("expected max to advance past %v, got %v", t2, maxAt2)
	}
}
