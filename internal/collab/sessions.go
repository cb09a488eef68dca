package collab

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
)

// Config wires a session registry. Fallback is optional; without it a store
// outage fails saves instead of degrading. Clock and IdleTimeout exist for
// tests and default to time.Now and LeaseTimeout.
type Config struct {
	Store       store.ProjectStore
	Fallback    store.ProjectStore
	Logger      *slog.Logger
	IdleTimeout time.Duration
	Clock       func() time.Time
}

// Sessions tracks the live editing sessions, one per (project, identity)
// pair, and runs a reconciler goroutine per session.
type Sessions struct {
	mu     sync.Mutex
	cfg    Config
	leases *LeaseManager
	open   map[string]*Session
}

// NewSessions creates the registry and its shared lease manager.
func NewSessions(cfg Config) *Sessions {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = LeaseTimeout
	}
	leases := NewLeaseManager(cfg.Store, cfg.Logger).WithClock(cfg.Clock)
	return &Sessions{
		cfg:    cfg,
		leases: leases,
		open:   make(map[string]*Session),
	}
}

// Leases exposes the shared lease manager for read-side state derivation.
func (r *Sessions) Leases() *LeaseManager { return r.leases }

func sessionKey(projectID string, who *models.Identity) string {
	return projectID + "\x00" + who.ID
}

// Open loads the project and returns the identity's session on it, creating
// the session and starting its reconciler on first open. Subsequent opens
// return the same session.
func (r *Sessions) Open(ctx context.Context, projectID string, who *models.Identity) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.open[sessionKey(projectID, who)]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	p, err := r.cfg.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return r.register(ctx, p, who)
}

// Create makes a new project owned by who, persists it, and opens a session
// on it.
func (r *Sessions) Create(ctx context.Context, who *models.Identity) (*Session, error) {
	p := newProject(who, models.Millis(r.cfg.Clock()))
	if err := r.cfg.Store.PutProject(ctx, p); err != nil {
		return nil, err
	}
	return r.register(ctx, p, who)
}

func (r *Sessions) register(ctx context.Context, p *models.Project, who *models.Identity) (*Session, error) {
	s := &Session{
		store:     r.cfg.Store,
		fallback:  r.cfg.Fallback,
		leases:    r.leases,
		idle:      NewIdleTimer(r.cfg.IdleTimeout),
		logger:    r.cfg.Logger,
		now:       r.cfg.Clock,
		identity:  who,
		projectID: p.ID,
		local:     p.Clone(),
		lastStamp: p.UpdatedAt,
	}

	r.mu.Lock()
	key := sessionKey(p.ID, who)
	if existing, ok := r.open[key]; ok {
		// Lost the race with a concurrent open of the same pair.
		r.mu.Unlock()
		return existing, nil
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	r.open[key] = s
	r.mu.Unlock()

	rec := &Reconciler{session: s, store: r.cfg.Store, logger: r.cfg.Logger}
	go func() {
		if err := rec.Run(watchCtx); err != nil && watchCtx.Err() == nil {
			r.cfg.Logger.Error("reconciler stopped", "project_id", s.projectID, "error", err)
		}
	}()

	return s, nil
}

// Close releases the identity's session on the project, flushing and
// dropping the lease if held. No-op if no session is open.
func (r *Sessions) Close(ctx context.Context, projectID string, who *models.Identity) error {
	r.mu.Lock()
	key := sessionKey(projectID, who)
	s, ok := r.open[key]
	delete(r.open, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return s.close(ctx)
}

// CloseAll shuts every session down, used on server shutdown so held leases
// are not left to expire.
func (r *Sessions) CloseAll(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.open))
	for _, s := range r.open {
		sessions = append(sessions, s)
	}
	r.open = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		if err := s.close(ctx); err != nil {
			r.cfg.Logger.Warn("session close failed during shutdown", "project_id", s.projectID, "error", err)
		}
	}
}

// DropProject closes every open session on a project without releasing
// leases, used after the project itself was deleted.
func (r *Sessions) DropProject(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, s := range r.open {
		if s.projectID != projectID {
			continue
		}
		s.idle.Stop()
		if s.watchCancel != nil {
			s.watchCancel()
		}
		delete(r.open, key)
	}
}
