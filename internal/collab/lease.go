// Package collab implements the single-writer collaboration protocol: the
// edit lease, the local editing session, the idle auto-release timer and the
// reconciliation of remote snapshots against in-flight local edits.
package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
)

// LeaseTimeout is how long a lease survives without renewal before any other
// identity may steal it. Renewal happens implicitly on every save while held;
// there is no separate heartbeat.
const LeaseTimeout = 15 * time.Minute

// HeldByOtherError is returned by Acquire when another identity holds a
// fresh lease. Non-fatal and user-facing; never retried automatically.
type HeldByOtherError struct {
	HolderDisplayName string
}

func (e *HeldByOtherError) Error() string {
	return fmt.Sprintf("project is being edited by %s", e.HolderDisplayName)
}

func (e *HeldByOtherError) StatusCode() int { return http.StatusLocked }

func (e *HeldByOtherError) Is(target error) bool { return target == domain.ErrConflict }

// LeaseManager issues, renews and releases the exclusive edit lease on a
// project. Acquisition runs inside the store's transactional update so that
// concurrent acquires serialize on the document row.
type LeaseManager struct {
	store  store.ProjectStore
	logger *slog.Logger
	now    func() time.Time
}

// NewLeaseManager creates a lease manager backed by the given store.
func NewLeaseManager(s store.ProjectStore, logger *slog.Logger) *LeaseManager {
	return &LeaseManager{store: s, logger: logger, now: time.Now}
}

// WithClock overrides the time source. Tests use it to control staleness.
func (m *LeaseManager) WithClock(now func() time.Time) *LeaseManager {
	m.now = now
	return m
}

// Acquire takes the lease for who, re-entrant for the current holder and
// stealing a stale foreign lease. A fresh foreign lease fails with
// HeldByOtherError. The check-and-set is atomic: it runs entirely inside
// UpdateProject, never as a separate read then write.
func (m *LeaseManager) Acquire(ctx context.Context, projectID string, who *models.Identity) (*models.Lease, error) {
	var acquired models.Lease

	_, err := m.store.UpdateProject(ctx, projectID, func(p *models.Project) error {
		current := p.Lease
		if current != nil && current.HolderID != who.ID && !m.Stale(current) {
			return &HeldByOtherError{HolderDisplayName: current.HolderDisplayName}
		}

		nowMillis := models.Millis(m.now())
		acquired = models.Lease{
			HolderID:          who.ID,
			HolderDisplayName: who.DisplayName,
			HolderAvatar:      who.PhotoURL,
			AcquiredAt:        nowMillis,
			LastRenewedAt:     nowMillis,
		}
		p.Lease = &acquired
		if nowMillis > p.UpdatedAt {
			p.UpdatedAt = nowMillis
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("lease acquired", "project_id", projectID, "holder_id", who.ID)
	return &acquired, nil
}

// Release clears the lease if who still holds it. Idempotent: releasing an
// already-released or stolen lease is a logged no-op, and never touches a
// lease now held by someone else.
func (m *LeaseManager) Release(ctx context.Context, projectID string, who *models.Identity) error {
	released := false

	_, err := m.store.UpdateProject(ctx, projectID, func(p *models.Project) error {
		if p.Lease == nil || p.Lease.HolderID != who.ID {
			return nil
		}
		p.Lease = nil
		released = true
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		// Project deleted while we held the lease; nothing to release.
		m.logger.Info("release on missing project", "project_id", projectID)
		return nil
	}
	if err != nil {
		return err
	}

	if released {
		m.logger.Info("lease released", "project_id", projectID, "holder_id", who.ID)
	} else {
		m.logger.Debug("release was a no-op", "project_id", projectID, "holder_id", who.ID)
	}
	return nil
}

// Stale reports whether the lease has gone unrenewed past LeaseTimeout.
func (m *LeaseManager) Stale(l *models.Lease) bool {
	if l == nil {
		return false
	}
	return models.Millis(m.now())-l.LastRenewedAt > LeaseTimeout.Milliseconds()
}

// Remaining returns the time left until the lease becomes steal-eligible,
// floored at zero.
func (m *LeaseManager) Remaining(l *models.Lease) time.Duration {
	if l == nil {
		return 0
	}
	left := LeaseTimeout.Milliseconds() - (models.Millis(m.now()) - l.LastRenewedAt)
	if left <= 0 {
		return 0
	}
	return time.Duration(left) * time.Millisecond
}

// HeldByMe reports whether who may edit: either the document's lease names
// them, or the optimistic-hold flag covers the window between a successful
// acquire and the next subscription echo.
func (m *LeaseManager) HeldByMe(p *models.Project, who *models.Identity, optimisticHold bool) bool {
	if optimisticHold {
		return true
	}
	return p != nil && p.Lease != nil && p.Lease.HolderID == who.ID
}

// HeldByOther reports whether a fresh foreign lease blocks editing. A stale
// foreign lease counts as unlocked.
func (m *LeaseManager) HeldByOther(p *models.Project, who *models.Identity) bool {
	if p == nil || p.Lease == nil || p.Lease.HolderID == who.ID {
		return false
	}
	return !m.Stale(p.Lease)
}
