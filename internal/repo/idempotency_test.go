package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/cptrainer/internal/domain"
)

func newIdemDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid schema leakage across tests.
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

func TestCreateProcessedUpdate_FirstDeliveryThenDuplicate(t *testing.T) {
	db := newIdemDB(t, &domain.ProcessedUpdate{})
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateProcessedUpdate(ctx, db, 10, 1, time.Hour, now); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := CreateProcessedUpdate(ctx, db, 10, 1, time.Hour, now.Add(time.Minute)); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate on redelivery, got %v", err)
	}
	// Same update id in another chat is independent.
	if err := CreateProcessedUpdate(ctx, db, 11, 1, time.Hour, now); err != nil {
		t.Fatalf("other chat: %v", err)
	}
}

func TestCreateProcessedUpdate_ExpiredMarkerIsReplaced(t *testing.T) {
	db := newIdemDB(t, &domain.ProcessedUpdate{})
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateProcessedUpdate(ctx, db, 10, 7, time.Minute, now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	later := now.Add(2 * time.Minute)
	if err := CreateProcessedUpdate(ctx, db, 10, 7, time.Minute, later); err != nil {
		t.Fatalf("expected expired marker to be replaced, got %v", err)
	}

	var cnt int64
	db.Model(&domain.ProcessedUpdate{}).Where("chat_id = ? AND update_id = ?", 10, 7).Count(&cnt)
	if cnt != 1 {
		t.Fatalf("expected exactly one marker, got %d", cnt)
	}
}

func TestCreateProcessedUpdate_Error_NoTable(t *testing.T) {
	db := newIdemDB(t /* no migrations */)
	err := CreateProcessedUpdate(context.Background(), db, 1, 1, time.Hour, time.Now())
	if err == nil || err == ErrDuplicate {
		t.Fatalf("expected raw DB error without table, got %v", err)
	}
}

func TestPurgeProcessedUpdates(t *testing.T) {
	db := newIdemDB(t, &domain.ProcessedUpdate{})
	ctx := context.Background()
	now := time.Now().UTC()

	_ = CreateProcessedUpdate(ctx, db, 1, 1, time.Minute, now)
	_ = CreateProcessedUpdate(ctx, db, 1, 2, time.Minute, now)
	_ = CreateProcessedUpdate(ctx, db, 1, 3, 24*time.Hour, now)

	n, err := PurgeProcessedUpdates(ctx, db, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged rows, got %d", n)
	}
}
