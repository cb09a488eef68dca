package collab

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	u1 = &models.Identity{ID: "u1", DisplayName: "Alice"}
	u2 = &models.Identity{ID: "u2", DisplayName: "Bob"}
)

func seedProject(t *testing.T, s *memory.Store, id string) {
	t.Helper()
	p := newProject(u1, 1000)
	p.ID = id
	if err := s.PutProject(context.Background(), p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func TestAcquireMutualExclusion(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")
	m := NewLeaseManager(s, testLogger())

	if _, err := m.Acquire(context.Background(), "doc", u1); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err := m.Acquire(context.Background(), "doc", u2)
	var held *HeldByOtherError
	if !errors.As(err, &held) {
		t.Fatalf("second acquire: got %v, want HeldByOtherError", err)
	}
	if held.HolderDisplayName != "Alice" {
		t.Errorf("holder name = %q, want Alice", held.HolderDisplayName)
	}

	p, _ := s.GetProject(context.Background(), "doc")
	if p.Lease == nil || p.Lease.HolderID != "u1" {
		t.Fatalf("lease = %+v, want held by u1", p.Lease)
	}
}

func TestAcquireConcurrent(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")
	m := NewLeaseManager(s, testLogger())

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, who := range []*models.Identity{u1, u2} {
		wg.Add(1)
		go func(i int, who *models.Identity) {
			defer wg.Done()
			_, results[i] = m.Acquire(context.Background(), "doc", who)
		}(i, who)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var held *HeldByOtherError
		if !errors.As(err, &held) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
}

func TestAcquireReentrant(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")
	m := NewLeaseManager(s, testLogger())

	first, err := m.Acquire(context.Background(), "doc", u1)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	second, err := m.Acquire(context.Background(), "doc", u1)
	if err != nil {
		t.Fatalf("re-acquire by holder: %v", err)
	}
	if second.AcquiredAt < first.AcquiredAt {
		t.Errorf("re-acquire went backwards in time")
	}
}

func TestStealStaleLease(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")

	now := time.Unix(1_700_000_000, 0)
	m := NewLeaseManager(s, testLogger()).WithClock(func() time.Time { return now })

	if _, err := m.Acquire(context.Background(), "doc", u1); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Just inside the timeout: still held.
	now = now.Add(LeaseTimeout - time.Second)
	if _, err := m.Acquire(context.Background(), "doc", u2); err == nil {
		t.Fatal("acquire inside timeout succeeded, want HeldByOtherError")
	}

	// Past the timeout: steal succeeds.
	now = now.Add(2 * time.Second)
	lease, err := m.Acquire(context.Background(), "doc", u2)
	if err != nil {
		t.Fatalf("steal: %v", err)
	}
	if lease.HolderID != "u2" {
		t.Errorf("holder = %s, want u2", lease.HolderID)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	s := memory.New()
	seedProject(t, s, "doc")
	m := NewLeaseManager(s, testLogger())

	if _, err := m.Acquire(context.Background(), "doc", u1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Release(context.Background(), "doc", u1); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := m.Release(context.Background(), "doc", u1); err != nil {
		t.Fatalf("second release: %v", err)
	}

	// Release after the lease moved to someone else must not clobber it.
	if _, err := m.Acquire(context.Background(), "doc", u2); err != nil {
		t.Fatalf("acquire by u2: %v", err)
	}
	if err := m.Release(context.Background(), "doc", u1); err != nil {
		t.Fatalf("release of stolen lease: %v", err)
	}
	p, _ := s.GetProject(context.Background(), "doc")
	if p.Lease == nil || p.Lease.HolderID != "u2" {
		t.Fatalf("lease = %+v, want still held by u2", p.Lease)
	}
}

func TestReleaseMissingProject(t *testing.T) {
	s := memory.New()
	m := NewLeaseManager(s, testLogger())
	if err := m.Release(context.Background(), "gone", u1); err != nil {
		t.Fatalf("release on missing project: %v", err)
	}
}

func TestLeaseStateDerivation(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	fresh := &models.Lease{
		HolderID:          "u2",
		HolderDisplayName: "Bob",
		AcquiredAt:        models.Millis(base),
		LastRenewedAt:     models.Millis(base),
	}
	stale := &models.Lease{
		HolderID:          "u2",
		HolderDisplayName: "Bob",
		AcquiredAt:        models.Millis(base.Add(-time.Hour)),
		LastRenewedAt:     models.Millis(base.Add(-time.Hour)),
	}
	mine := &models.Lease{HolderID: "u1", LastRenewedAt: models.Millis(base)}

	tests := []struct {
		name           string
		lease          *models.Lease
		optimisticHold bool
		wantKind       LeaseStateKind
	}{
		{name: "no lease", lease: nil, wantKind: StateUnlocked},
		{name: "held by me", lease: mine, wantKind: StateHeldByMe},
		{name: "optimistic hold without lease", lease: nil, optimisticHold: true, wantKind: StateHeldByMe},
		{name: "fresh foreign lease", lease: fresh, wantKind: StateHeldByOther},
		{name: "stale foreign lease", lease: stale, wantKind: StateHeldByOtherStale},
	}

	m := NewLeaseManager(memory.New(), testLogger()).WithClock(func() time.Time { return base.Add(time.Minute) })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Project{ID: "doc", Lease: tt.lease}
			state := m.State(p, u1, tt.optimisticHold)
			if state.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", state.Kind, tt.wantKind)
			}
			if tt.wantKind == StateHeldByOther {
				if state.HolderDisplayName != "Bob" {
					t.Errorf("holder = %q, want Bob", state.HolderDisplayName)
				}
				if state.CountdownMillis <= 0 || state.CountdownMillis > LeaseTimeout.Milliseconds() {
					t.Errorf("countdown = %d, want within (0, %d]", state.CountdownMillis, LeaseTimeout.Milliseconds())
				}
			}
			if tt.wantKind == StateHeldByOtherStale && state.HolderDisplayName != "Bob" {
				t.Errorf("stale state should still name the previous holder")
			}
		})
	}
}
