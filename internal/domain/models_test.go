package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func intp(v int) *int { return &v }

func TestTableNames(t *testing.T) {
	if (User{}).TableName() != "users" {
		t.Fatalf("User.TableName() = %q; want %q", (User{}).TableName(), "users")
	}
	if (ProcessedUpdate{}).TableName() != "processed_updates" {
		t.Fatalf("ProcessedUpdate.TableName() = %q; want %q", (ProcessedUpdate{}).TableName(), "processed_updates")
	}
}

func TestUserMigration_UniqueHandleAndChat(t *testing.T) {
	db := newDomainDB(t)
	_ = db.Migrator().DropTable(&User{})
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&User{}, "ux_users_handle") || !m.HasIndex(&User{}, "ux_users_chat_id") {
		t.Fatalf("expected unique indexes on handle and chat_id")
	}

	if err := db.Create(&User{Handle: "alice", ChatID: 1, Rating: 1200, Rank: "pupil"}).Error; err != nil {
		t.Fatalf("insert alice: %v", err)
	}
	if err := db.Create(&User{Handle: "alice", ChatID: 2}).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate handle")
	}
	if err := db.Create(&User{Handle: "bob", ChatID: 1}).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate chat id")
	}

	var got User
	if err := db.First(&got, "handle = ?", "alice").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.ID == 0 || got.Streak != 0 || got.Rating != 1200 {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestProblem_IDAndTags(t *testing.T) {
	p := Problem{ContestID: 1850, Index: "C2", Tags: []string{"dp", "*special"}}
	if p.ID() != "1850_C2" {
		t.Fatalf("ID() = %q", p.ID())
	}
	if !p.HasTag("*special") || p.HasTag("greedy") {
		t.Fatalf("HasTag mismatch for %+v", p.Tags)
	}
}

func TestPendingVerification_Expired(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := PendingVerification{Handle: "alice", IssuedAt: t0}
	ttl := 300 * time.Second

	if p.Expired(t0.Add(ttl), ttl) {
		t.Fatalf("exactly ttl must still be valid")
	}
	if !p.Expired(t0.Add(ttl+time.Second), ttl) {
		t.Fatalf("ttl+1s must be expired")
	}
}

func TestAssignment_SolvedBy(t *testing.T) {
	easy := &Problem{ContestID: 1, Index: "A", Rating: intp(800)}
	hard := &Problem{ContestID: 2, Index: "B", Rating: intp(1000)}
	solved := SolvedSet{"1_A": {}, "2_B": {}}

	cases := []struct {
		name string
		a    Assignment
		want bool
	}{
		{"both solved", Assignment{Easy: easy, Hard: hard}, true},
		{"hard missing", Assignment{Easy: easy}, false},
		{"easy missing", Assignment{Hard: hard}, false},
		{"one unsolved", Assignment{Easy: easy, Hard: &Problem{ContestID: 3, Index: "C"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.SolvedBy(solved); got != tc.want {
				t.Fatalf("SolvedBy = %v; want %v", got, tc.want)
			}
		})
	}

	e, h := Assignment{Easy: easy}.ProblemIDs()
	if e != "1_A" || h != "" {
		t.Fatalf("ProblemIDs = (%q,%q)", e, h)
	}
}
