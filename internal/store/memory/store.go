// Package memory provides an in-process ProjectStore. It backs tests and is
// the degraded-mode fallback when the primary store is unreachable: document
// saves land here so the session keeps working locally.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/store/notify"
)

// Store keeps all documents in memory and fans out change notifications
// through a hub. Snapshot isolation: every read hands out a deep clone, every
// write stores a deep clone.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*models.Project
	members  map[string]*models.TeamMember
	hub      *notify.Hub
}

var _ store.ProjectStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		projects: make(map[string]*models.Project),
		members:  make(map[string]*models.TeamMember),
		hub:      notify.NewHub(),
	}
}

// GetProject returns a snapshot of the project.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return p.Clone(), nil
}

// PutProject replaces the whole document, creating it if absent.
func (s *Store) PutProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project id is required: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	s.projects[p.ID] = p.Clone()
	s.mu.Unlock()

	s.notifyProject(p.ID)
	return nil
}

// UpdateProject applies fn under the store lock, making the read-modify-write
// atomic with respect to concurrent updates.
func (s *Store) UpdateProject(ctx context.Context, id string, fn store.UpdateFn) (*models.Project, error) {
	s.mu.Lock()
	current, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.projects[id] = next
	snapshot := next.Clone()
	s.mu.Unlock()

	s.notifyProject(id)
	return snapshot, nil
}

// DeleteProject removes the document entirely.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.projects[id]
	delete(s.projects, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	s.notifyProject(id)
	return nil
}

// ListProjects returns all projects ordered by updatedAt descending.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(), nil
}

func (s *Store) listLocked() []models.Project {
	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

// WatchProject delivers a snapshot immediately and then after every write.
// A nil snapshot signals the project is absent or deleted.
func (s *Store) WatchProject(ctx context.Context, id string) (<-chan *models.Project, error) {
	want := notify.ProjectEvent(id)
	ch := notify.Watch(ctx, s.hub,
		func(ev string) bool { return ev == want },
		func(ctx context.Context) (*models.Project, bool) {
			snap, err := s.GetProject(ctx, id)
			if err != nil {
				return nil, true // absent or deleted
			}
			return snap, true
		})
	return ch, nil
}

// WatchProjects delivers the full listing on subscribe and after every write.
func (s *Store) WatchProjects(ctx context.Context) (<-chan []models.Project, error) {
	ch := notify.Watch(ctx, s.hub,
		func(ev string) bool { return ev == notify.TopicProjects },
		func(ctx context.Context) ([]models.Project, bool) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			return s.listLocked(), true
		})
	return ch, nil
}

// UpsertMember creates or refreshes a roster entry.
func (s *Store) UpsertMember(ctx context.Context, m *models.TeamMember) error {
	if m.UID == "" {
		return fmt.Errorf("member uid is required: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	copied := *m
	s.members[m.UID] = &copied
	s.mu.Unlock()

	s.hub.Publish(notify.TopicMembers)
	return nil
}

// ListMembers returns the roster sorted by display name.
func (s *Store) ListMembers(ctx context.Context) ([]models.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.membersLocked(), nil
}

func (s *Store) membersLocked() []models.TeamMember {
	out := make([]models.TeamMember, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// WatchMembers delivers the roster on subscribe and after every upsert.
func (s *Store) WatchMembers(ctx context.Context) (<-chan []models.TeamMember, error) {
	ch := notify.Watch(ctx, s.hub,
		func(ev string) bool { return ev == notify.TopicMembers },
		func(ctx context.Context) ([]models.TeamMember, bool) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			return s.membersLocked(), true
		})
	return ch, nil
}

func (s *Store) notifyProject(id string) {
	s.hub.Publish(notify.ProjectEvent(id))
	s.hub.Publish(notify.TopicProjects)
}
