package collab

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/store/memory"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestSessions(s store.ProjectStore, idle time.Duration) *Sessions {
	return NewSessions(Config{
		Store:       s,
		Logger:      testLogger(),
		IdleTimeout: idle,
	})
}

func TestEditRequiresLease(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")
	reg := newTestSessions(s, time.Minute)

	session, err := reg.Open(context.Background(), "doc", u1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	err = session.SetSpecFunctional("draft")
	var required *LeaseRequiredError
	if !errors.As(err, &required) {
		t.Fatalf("edit without lease: got %v, want LeaseRequiredError", err)
	}
}

func TestEditBlockedByForeignLease(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")
	reg := newTestSessions(s, time.Minute)

	other, err := reg.Open(context.Background(), "doc", u2)
	if err != nil {
		t.Fatalf("open u2: %v", err)
	}
	if _, err := other.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire u2: %v", err)
	}

	session, err := reg.Open(context.Background(), "doc", u1)
	if err != nil {
		t.Fatalf("open u1: %v", err)
	}
	waitFor(t, "u1 to observe the foreign lease", func() bool {
		return session.LockState().Kind == StateHeldByOther
	})

	err = session.SetSpecFunctional("draft")
	var held *HeldByOtherError
	if !errors.As(err, &held) {
		t.Fatalf("edit under foreign lease: got %v, want HeldByOtherError", err)
	}
}

// newDetachedSession builds a session without the registry's background
// reconciler, so tests can feed snapshots in deterministically.
func newDetachedSession(t *testing.T, s store.ProjectStore, who *models.Identity, projectID string) *Session {
	t.Helper()
	p, err := s.GetProject(context.Background(), projectID)
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	return &Session{
		store:     s,
		leases:    NewLeaseManager(s, testLogger()),
		idle:      NewIdleTimer(time.Minute),
		logger:    testLogger(),
		now:       time.Now,
		identity:  who,
		projectID: projectID,
		local:     p.Clone(),
		lastStamp: p.UpdatedAt,
	}
}

func TestOwnWriteSuppression(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")

	session := newDetachedSession(t, s, u1, "doc")
	if _, err := session.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := session.SetSpecFunctional("in-flight local edit"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	// An echo of our own earlier write: stale prose, but a board update
	// another collaborator slipped in.
	echo := session.Snapshot()
	echo.SpecFunctional = "stale echoed text"
	echo.Lease = &models.Lease{HolderID: u1.ID, HolderDisplayName: u1.DisplayName,
		AcquiredAt: 1, LastRenewedAt: models.Millis(time.Now())}
	echo.Tasks = []models.Task{{ID: "t1", Title: "from remote", Status: models.TaskStatusTodo}}
	session.applyRemote(echo)

	snap := session.Snapshot()
	if snap.SpecFunctional != "in-flight local edit" {
		t.Errorf("prose overwritten by own echo: %q", snap.SpecFunctional)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].ID != "t1" {
		t.Errorf("board collections should apply from remote, got %+v", snap.Tasks)
	}
}

func TestForeignSnapshotApplies(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")

	session := newDetachedSession(t, s, u1, "doc")
	remote := session.Snapshot()
	remote.SpecFunctional = "written by bob"
	remote.Name = "Bob's Project"
	remote.Lease = &models.Lease{HolderID: u2.ID, HolderDisplayName: u2.DisplayName,
		AcquiredAt: models.Millis(time.Now()), LastRenewedAt: models.Millis(time.Now())}
	session.applyRemote(remote)

	snap := session.Snapshot()
	if snap.SpecFunctional != "written by bob" || snap.Name != "Bob's Project" {
		t.Errorf("foreign snapshot not applied: %+v", snap)
	}
	if session.LockState().Kind != StateHeldByOther {
		t.Errorf("lock state = %s, want held_by_other", session.LockState().Kind)
	}
}

// fakeClock is a mutex-guarded time source safe to advance while session
// goroutines read it.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingStore counts full-document saves passing through to the backing
// store.
type countingStore struct {
	store.ProjectStore
	puts atomic.Int32
}

func (c *countingStore) PutProject(ctx context.Context, p *models.Project) error {
	c.puts.Add(1)
	return c.ProjectStore.PutProject(ctx, p)
}

func TestIdleAutoRelease(t *testing.T) {
	mem := memory.New()
	seedProject(t, mem, "doc")
	counting := &countingStore{ProjectStore: mem}
	reg := newTestSessions(counting, 40*time.Millisecond)

	session, err := reg.Open(context.Background(), "doc", u1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := session.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	before := counting.puts.Load()

	waitFor(t, "idle timer to release the lease", func() bool {
		p, err := mem.GetProject(context.Background(), "doc")
		return err == nil && p.Lease == nil
	})

	// Exactly one final flush accompanied the auto-release.
	time.Sleep(100 * time.Millisecond)
	if flushes := counting.puts.Load() - before; flushes != 1 {
		t.Errorf("flushes during auto-release = %d, want 1", flushes)
	}

	// A second manual release after expiry stays a no-op.
	if err := session.Release(context.Background()); err != nil {
		t.Fatalf("release after auto-release: %v", err)
	}
}

func TestSaveRenewsLease(t *testing.T) {
	mem := memory.New()
	seedProject(t, mem, "doc")

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	reg := NewSessions(Config{
		Store:       mem,
		Logger:      testLogger(),
		IdleTimeout: time.Minute,
		Clock:       clock.Now,
	})

	session, err := reg.Open(context.Background(), "doc", u1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := session.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	clock.Advance(10 * time.Minute)
	if err := session.SetSpecFunctional("v1"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := session.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	p, _ := mem.GetProject(context.Background(), "doc")
	if p.Lease == nil {
		t.Fatal("lease cleared by save")
	}
	if p.Lease.LastRenewedAt != models.Millis(clock.Now()) {
		t.Errorf("lastRenewedAt = %d, want %d (renewed on save)", p.Lease.LastRenewedAt, models.Millis(clock.Now()))
	}
	if p.LastWriterID != u1.ID {
		t.Errorf("lastWriterId = %q, want %q", p.LastWriterID, u1.ID)
	}
}

func TestSaveKeepsUpdatedAtMonotonic(t *testing.T) {
	mem := memory.New()
	seedProject(t, mem, "doc")

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	reg := NewSessions(Config{
		Store:       mem,
		Logger:      testLogger(),
		IdleTimeout: time.Minute,
		Clock:       clock.Now,
	})

	session, err := reg.Open(context.Background(), "doc", u1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := session.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := session.Save(context.Background()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	first, _ := mem.GetProject(context.Background(), "doc")

	// Clock goes backwards; the stamp must not.
	clock.Advance(-time.Hour)
	if err := session.Save(context.Background()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, _ := mem.GetProject(context.Background(), "doc")

	if second.UpdatedAt <= first.UpdatedAt {
		t.Errorf("updatedAt went backwards: %d then %d", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestLockHandoffEndToEnd(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")
	reg := newTestSessions(s, time.Minute)
	ctx := context.Background()

	alice, err := reg.Open(ctx, "doc", u1)
	if err != nil {
		t.Fatalf("open u1: %v", err)
	}
	if _, err := alice.Acquire(ctx); err != nil {
		t.Fatalf("acquire u1: %v", err)
	}
	if err := alice.SetSpecFunctional("v1"); err != nil {
		t.Fatalf("edit u1: %v", err)
	}
	if err := alice.Save(ctx); err != nil {
		t.Fatalf("save u1: %v", err)
	}

	bob, err := reg.Open(ctx, "doc", u2)
	if err != nil {
		t.Fatalf("open u2: %v", err)
	}
	waitFor(t, "u2 to observe v1 under u1's lease", func() bool {
		snap := bob.Snapshot()
		return snap != nil && snap.SpecFunctional == "v1" && bob.LockState().Kind == StateHeldByOther
	})
	if err := bob.SetSpecFunctional("rejected"); err == nil {
		t.Fatal("u2 edited while u1 held the lease")
	}

	if err := alice.Release(ctx); err != nil {
		t.Fatalf("release u1: %v", err)
	}
	waitFor(t, "u2 to observe the unlock", func() bool {
		return bob.LockState().Kind == StateUnlocked
	})

	if _, err := bob.Acquire(ctx); err != nil {
		t.Fatalf("acquire u2: %v", err)
	}
	if err := bob.SetSpecFunctional("v2"); err != nil {
		t.Fatalf("edit u2: %v", err)
	}
	if err := bob.Save(ctx); err != nil {
		t.Fatalf("save u2: %v", err)
	}

	// Alice, still subscribed, observes v2 without re-acquiring.
	waitFor(t, "u1 to observe v2", func() bool {
		snap := alice.Snapshot()
		return snap != nil && snap.SpecFunctional == "v2"
	})
	if alice.LockState().Kind == StateHeldByMe {
		t.Error("u1 still appears to hold the lease after release")
	}
}
