package store

import (
	"context"
	"errors"

	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

// ErrUnavailable indicates the backing document store cannot be reached.
// Callers fall back to the local in-memory store and flag the session
// degraded; the error is never fatal.
var ErrUnavailable = errors.New("document store unavailable")

// UpdateFn mutates a project inside a transactional read-modify-write.
// Returning an error aborts the update without writing.
type UpdateFn func(p *models.Project) error

// ProjectStore is the document store adapter: point reads, full-replace
// writes, transactional read-modify-write, and push-on-change subscriptions.
// The lease field is the only state that requires UpdateProject's atomicity;
// board mutations use it as a read-merge-write convenience, and bulk document
// saves deliberately use PutProject (last write wins).
type ProjectStore interface {
	// GetProject returns a snapshot of the project, or domain.ErrNotFound.
	GetProject(ctx context.Context, id string) (*models.Project, error)

	// PutProject replaces the whole document. Idempotent; creates the
	// document if absent.
	PutProject(ctx context.Context, p *models.Project) error

	// UpdateProject runs fn against the current document atomically with
	// respect to concurrent UpdateProject calls, then persists the result.
	// Returns the updated snapshot.
	UpdateProject(ctx context.Context, id string, fn UpdateFn) (*models.Project, error)

	// DeleteProject removes the document entirely.
	DeleteProject(ctx context.Context, id string) error

	// ListProjects returns all projects ordered by updatedAt descending.
	ListProjects(ctx context.Context) ([]models.Project, error)

	// WatchProject delivers a snapshot immediately and then on every write
	// until ctx is cancelled. Slow consumers may observe coalesced updates
	// but never stale-after-fresh ones.
	WatchProject(ctx context.Context, id string) (<-chan *models.Project, error)

	// WatchProjects delivers the full listing (updatedAt descending) on
	// subscribe and after every project write or delete.
	WatchProjects(ctx context.Context) (<-chan []models.Project, error)

	// UpsertMember creates or refreshes a team-roster entry.
	UpsertMember(ctx context.Context, m *models.TeamMember) error

	// ListMembers returns the full team roster.
	ListMembers(ctx context.Context) ([]models.TeamMember, error)

	// WatchMembers delivers the roster on subscribe and after every upsert.
	WatchMembers(ctx context.Context) (<-chan []models.TeamMember, error)
}
