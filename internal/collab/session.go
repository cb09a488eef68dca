package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
)

// LeaseRequiredError is returned when a prose mutation arrives without the
// caller holding the edit lease.
type LeaseRequiredError struct{}

func (e *LeaseRequiredError) Error() string {
	return "acquire the edit lease before editing the document"
}

func (e *LeaseRequiredError) StatusCode() int { return http.StatusConflict }

func (e *LeaseRequiredError) Is(target error) bool { return target == domain.ErrConflict }

// Session is one identity's live editing session on one project. It owns the
// authoritative in-memory copy of the document: user edits mutate it
// optimistically and the reconciler merges remote snapshots into it. All
// timer and watch callbacks read lease state through the session, never
// through a captured copy, so none of them can act on a stale lease.
type Session struct {
	mu sync.Mutex

	store    store.ProjectStore
	fallback store.ProjectStore
	leases   *LeaseManager
	idle     *IdleTimer
	logger   *slog.Logger
	now      func() time.Time

	identity  *models.Identity
	projectID string

	local          *models.Project
	optimisticHold bool
	degraded       bool
	dirty          bool
	lastStamp      int64
	closed         bool

	watchCancel context.CancelFunc
}

// ProjectID returns the id of the project this session edits.
func (s *Session) ProjectID() string { return s.projectID }

// Identity returns the identity the session acts as.
func (s *Session) Identity() *models.Identity { return s.identity }

// Snapshot returns a deep copy of the session's current document state, or
// nil if the project was deleted out from under the session.
func (s *Session) Snapshot() *models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local.Clone()
}

// Degraded reports whether the last save fell back to local-only
// persistence because the primary store was unreachable.
func (s *Session) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// LockState derives the current lock state for this session's identity.
func (s *Session) LockState() LeaseState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leases.State(s.local, s.identity, s.optimisticHold)
}

// Acquire takes the edit lease and arms the idle timer. Re-entrant while
// already held; steals a stale foreign lease; fails with HeldByOtherError
// against a fresh one.
func (s *Session) Acquire(ctx context.Context) (LeaseState, error) {
	lease, err := s.leases.Acquire(ctx, s.projectID, s.identity)
	if err != nil {
		return s.LockState(), err
	}

	s.mu.Lock()
	s.optimisticHold = true
	if s.local != nil {
		leaseCopy := *lease
		s.local.Lease = &leaseCopy
	}
	s.mu.Unlock()

	s.armIdle()
	return s.LockState(), nil
}

// Release flushes pending content and clears the lease. Idempotent: calling
// it without holding the lease, or after the lease was stolen, is a no-op.
func (s *Session) Release(ctx context.Context) error {
	s.idle.Stop()

	s.mu.Lock()
	holding := s.leases.HeldByMe(s.local, s.identity, s.optimisticHold)
	s.mu.Unlock()
	if !holding {
		return nil
	}

	// Final flush goes out stamped with the current lease so the
	// reconciler on other sessions treats it as the holder's write.
	if err := s.Save(ctx); err != nil {
		s.logger.Warn("final flush before release failed", "project_id", s.projectID, "error", err)
	}

	if err := s.leases.Release(ctx, s.projectID, s.identity); err != nil {
		return err
	}

	s.mu.Lock()
	s.optimisticHold = false
	if s.local != nil && s.local.Lease != nil && s.local.Lease.HolderID == s.identity.ID {
		s.local.Lease = nil
	}
	s.mu.Unlock()

	// The flush above re-armed the countdown; nothing is held anymore.
	s.idle.Stop()
	return nil
}

// SetName renames the project, clamping per the display rules. Requires the
// lease.
func (s *Session) SetName(name string) error {
	return s.edit(func(p *models.Project) {
		p.Name = models.ClampProjectName(name)
	})
}

// SetSpecFunctional replaces the functional spec text. Requires the lease.
func (s *Session) SetSpecFunctional(text string) error {
	return s.edit(func(p *models.Project) { p.SpecFunctional = text })
}

// SetSpecTechnical replaces the technical spec text. Requires the lease.
func (s *Session) SetSpecTechnical(text string) error {
	return s.edit(func(p *models.Project) { p.SpecTechnical = text })
}

// SetSpecPlan replaces the implementation plan text. Requires the lease.
func (s *Session) SetSpecPlan(text string) error {
	return s.edit(func(p *models.Project) { p.SpecPlan = text })
}

// AppendMessage appends to the transcript. The transcript is append-only;
// entries are never reordered or removed. Requires the lease.
func (s *Session) AppendMessage(msg models.Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = models.Millis(s.now())
	}
	return s.edit(func(p *models.Project) {
		p.Transcript = append(p.Transcript, msg)
	})
}

func (s *Session) edit(mutate func(p *models.Project)) error {
	s.mu.Lock()
	if s.local == nil {
		s.mu.Unlock()
		return &domain.NotFoundError{Message: "project no longer exists"}
	}
	if !s.leases.HeldByMe(s.local, s.identity, s.optimisticHold) {
		var err error
		if s.leases.HeldByOther(s.local, s.identity) {
			err = &HeldByOtherError{HolderDisplayName: s.local.Lease.HolderDisplayName}
		} else {
			err = &LeaseRequiredError{}
		}
		s.mu.Unlock()
		return err
	}

	mutate(s.local)
	s.dirty = true
	s.mu.Unlock()

	s.armIdle()
	return nil
}

// Save persists the whole document aggregate: local prose and transcript
// plus the board collections merged forward from the last known copy. While
// the lease is held the write renews it. If the primary store is down the
// write lands in the local fallback store and the session enters degraded
// mode until a save succeeds remotely again.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.local == nil {
		s.mu.Unlock()
		return &domain.NotFoundError{Message: "project no longer exists"}
	}

	stamp := models.Millis(s.now())
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp

	s.local.UpdatedAt = stamp
	s.local.LastWriterID = s.identity.ID
	s.local.LastWriterDisplayName = s.identity.DisplayName
	s.local.LastWriterAvatar = s.identity.PhotoURL
	if s.local.Lease != nil && s.local.Lease.HolderID == s.identity.ID {
		s.local.Lease.LastRenewedAt = stamp
	}
	outgoing := s.local.Clone()
	holding := s.leases.HeldByMe(s.local, s.identity, s.optimisticHold)
	s.mu.Unlock()

	err := s.store.PutProject(ctx, outgoing)
	switch {
	case err == nil:
		s.setDegraded(false)
	case errors.Is(err, store.ErrUnavailable) && s.fallback != nil:
		s.logger.Warn("primary store unavailable, saving locally", "project_id", s.projectID, "error", err)
		if fbErr := s.fallback.PutProject(ctx, outgoing); fbErr != nil {
			return fmt.Errorf("fallback save: %w", fbErr)
		}
		s.setDegraded(true)
	default:
		return err
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	if holding {
		s.armIdle()
	}
	return nil
}

func (s *Session) setDegraded(v bool) {
	s.mu.Lock()
	changed := s.degraded != v
	s.degraded = v
	s.mu.Unlock()
	if changed && v {
		s.logger.Warn("session entered degraded mode", "project_id", s.projectID)
	} else if changed {
		s.logger.Info("session left degraded mode", "project_id", s.projectID)
	}
}

// armIdle (re)starts the idle countdown. On expiry the session releases the
// lease automatically; failures there are logged only, since no user is
// present to act on them.
func (s *Session) armIdle() {
	s.idle.Start(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.logger.Info("idle timeout, auto-releasing lease", "project_id", s.projectID, "holder_id", s.identity.ID)
		if err := s.Release(ctx); err != nil {
			s.logger.Error("idle auto-release failed", "project_id", s.projectID, "error", err)
		}
	})
}

// applyRemote reconciles one pushed snapshot into the session. Prose fields
// follow the single-writer rule: a snapshot whose lease names this session's
// identity is an echo of our own pending or confirmed write and must not
// clobber in-flight edits. The board collections are multi-writer and apply
// from remote unconditionally.
func (s *Session) applyRemote(snap *models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap == nil {
		s.local = nil
		s.optimisticHold = false
		return
	}
	if s.local == nil {
		s.local = snap.Clone()
		return
	}

	ownEcho := snap.Lease != nil && snap.Lease.HolderID == s.identity.ID
	// The optimistic hold covers the window between a successful acquire
	// and its echo; an unlocked snapshot arriving in that window is stale
	// and must not clobber either. A fresh foreign lease means ours was
	// stolen, and the remote state wins.
	if !ownEcho && s.optimisticHold && !s.leases.HeldByOther(snap, s.identity) {
		ownEcho = true
	}

	if !ownEcho {
		s.local = snap.Clone()
		s.optimisticHold = false
		s.dirty = false
		return
	}

	clone := snap.Clone()
	if snap.Lease != nil && snap.Lease.HolderID == s.identity.ID {
		// Echo confirmed the acquire; the real lease replaces the flag.
		s.optimisticHold = false
		s.local.Lease = clone.Lease
	}
	s.local.Tasks = clone.Tasks
	s.local.Milestones = clone.Milestones
	s.local.TimeEntries = clone.TimeEntries
	s.local.Comments = clone.Comments
}

// close releases the lease if held and stops the watch goroutine.
func (s *Session) close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.watchCancel
	s.mu.Unlock()

	err := s.Release(ctx)
	if cancel != nil {
		cancel()
	}
	return err
}

func newProject(who *models.Identity, nowMillis int64) *models.Project {
	return &models.Project{
		ID:                    uuid.NewString(),
		Name:                  models.DefaultProjectName,
		Transcript:            []models.Message{},
		OwnerID:               who.ID,
		LastWriterID:          who.ID,
		LastWriterDisplayName: who.DisplayName,
		LastWriterAvatar:      who.PhotoURL,
		UpdatedAt:             nowMillis,
		Tasks:                 []models.Task{},
		Milestones:            []models.Milestone{},
		TimeEntries:           []models.TimeEntry{},
		Comments:              []models.TaskComment{},
	}
}
