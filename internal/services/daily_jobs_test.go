package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/cptrainer/internal/domain"
)

func TestReconcile_IncrementsSolvedResetsOthers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.users.add("solver", 1, 4)
	f.users.add("slacker", 2, 6)
	f.users.add("bystander", 3, 11) // no assignment

	a1, _ := f.assign.Issue(ctx, "solver")
	a2, _ := f.assign.Issue(ctx, "slacker")
	f.cat.solve("solver", a1.Easy, a1.Hard)
	f.cat.solve("slacker", a2.Hard)

	r, err := f.jobs.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Job: JobReconcile, Total: 2, Succeeded: 2}, r)

	assert.Equal(t, 5, f.users.streak("solver"))
	assert.Equal(t, 0, f.users.streak("slacker"))
	assert.Equal(t, 11, f.users.streak("bystander"), "users without an assignment are untouched")
}

func TestReconcile_UpstreamFailureSkipsUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.users.add("alice", 1, 3)
	f.users.add("bob", 2, 3)
	_, _ = f.assign.Issue(ctx, "alice")
	_, _ = f.assign.Issue(ctx, "bob")
	f.cat.statusErr["alice"] = errUpstream

	r, err := f.jobs.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Succeeded)
	assert.Equal(t, 3, f.users.streak("alice"), "skipped, not reset")
	assert.Equal(t, 0, f.users.streak("bob"))
}

func TestReconcile_MissingProblemResets(t *testing.T) {
	f := newFixture()
	f.users.add("alice", 1, 3)
	easy := f.cat.problems[0]
	f.store.Put(domain.Assignment{Handle: "alice", Easy: &easy})
	f.cat.solve("alice", &easy)

	_, err := f.jobs.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.users.streak("alice"))
}

func TestReconcile_RemovedUserIsSkipped(t *testing.T) {
	f := newFixture()
	f.store.Put(domain.Assignment{Handle: "gone"})

	r, err := f.jobs.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Skipped)
	assert.Zero(t, r.Failed)
}

func TestRotate_IssuesAndNotifiesEveryUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.users.add("alice", 10, 0)
	f.users.add("bob", 20, 0)
	f.users.add("carol", 30, 0)
	f.notifier.fail[20] = true
	f.store.Put(domain.Assignment{Handle: "ghost"})
	_, _ = f.assign.Issue(ctx, "alice")
	f.store.MarkSolved("alice")

	r, err := f.jobs.Rotate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, 1, r.Failed, "one failed delivery does not stop the rest")

	for _, tc := range []struct {
		handle string
		chat   int64
	}{{"alice", 10}, {"carol", 30}} {
		a, ok := f.store.Get(tc.handle)
		require.True(t, ok)
		msgs := f.notifier.to(tc.chat)
		require.Len(t, msgs, 1)
		assert.Equal(t, a.Text, msgs[0])
	}

	// bob still gets a fresh assignment even though delivery failed.
	_, ok := f.store.Get("bob")
	assert.True(t, ok)

	a, _ := f.store.Get("alice")
	assert.False(t, a.Solved, "rotation replaces the record")

	_, ok = f.store.Get("ghost")
	assert.False(t, ok, "assignments of unregistered users are dropped")
}

func TestRotate_DirectoryFailureAborts(t *testing.T) {
	f := newFixture()
	f.users.err = errUpstream
	_, err := f.jobs.Rotate(context.Background())
	assert.Error(t, err)
}

func TestRemind(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.users.add("open", 1, 0)
	f.users.add("done", 2, 0)
	f.users.add("flagged", 3, 0)
	f.users.add("blocked", 4, 0)
	f.notifier.fail[4] = true

	for _, h := range []string{"open", "done", "flagged", "blocked"} {
		_, err := f.assign.Issue(ctx, h)
		require.NoError(t, err)
	}
	f.store.Put(domain.Assignment{Handle: "unknown"})
	d, _ := f.store.Get("done")
	f.cat.solve("done", d.Easy, d.Hard)
	f.store.MarkSolved("flagged")

	r, err := f.jobs.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 1, r.Succeeded)
	assert.Equal(t, 3, r.Skipped) // done, flagged, unknown
	assert.Equal(t, 1, r.Failed)

	require.Len(t, f.notifier.to(1), 1)
	assert.Equal(t, ReminderText("open"), f.notifier.to(1)[0])
	assert.Empty(t, f.notifier.to(2))
	assert.Empty(t, f.notifier.to(3))

	done, _ := f.store.Get("done")
	assert.True(t, done.Solved, "live check flags the assignment")

	// A second run no longer fetches the flagged ones.
	before := f.cat.count("status")
	_, _ = f.jobs.Remind(ctx)
	assert.Equal(t, before+3, f.cat.count("status")) // open, blocked, unknown
}

func TestRemind_UpstreamFailureStillReminds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.users.add("alice", 1, 0)
	_, _ = f.assign.Issue(ctx, "alice")
	f.cat.statusErr["alice"] = errUpstream

	r, err := f.jobs.Remind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Succeeded)
	assert.Len(t, f.notifier.to(1), 1)
}

func TestReminderText(t *testing.T) {
	assert.Equal(t,
		"Reminder: alice, you haven't completed your assigned problems for today yet. Please do so to not lose your streak!",
		ReminderText("alice"))
}

func TestJobs_CatalogCallsYieldToCommands(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.users.add("alice", 1, 0)
	f.users.add("bob", 2, 0)

	_, err := f.assign.Issue(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, f.cat.background, "command paths use the interactive budget")

	before := f.cat.count("status")
	_, err = f.jobs.Rotate(ctx)
	require.NoError(t, err)
	_, err = f.jobs.Reconcile(ctx)
	require.NoError(t, err)

	jobCalls := f.cat.count("status") - before
	f.cat.mu.Lock()
	background := f.cat.background
	f.cat.mu.Unlock()
	assert.Positive(t, jobCalls)
	assert.Equal(t, jobCalls, background)
}
