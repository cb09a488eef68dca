// Package postgres implements the document store on Postgres: one JSONB
// document per project, with the transactional read-modify-write required by
// lease acquisition done under SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/store/notify"
)

// Store implements store.ProjectStore on a pgx pool. Change events travel
// through the in-process hub; when a Redis broadcaster is configured, local
// writes publish to Redis instead and the Run loop feeds the echoes (own and
// foreign) back into the hub, so every instance sees every write exactly
// once.
type Store struct {
	pool        *pgxpool.Pool
	tables      *TableNames
	hub         *notify.Hub
	broadcaster *notify.RedisBroadcaster
	logger      *slog.Logger
}

var _ store.ProjectStore = (*Store)(nil)

// New creates a postgres-backed store. broadcaster may be nil for
// single-instance deployments.
func New(pool *pgxpool.Pool, tables *TableNames, broadcaster *notify.RedisBroadcaster, logger *slog.Logger) *Store {
	return &Store{
		pool:        pool,
		tables:      tables,
		hub:         notify.NewHub(),
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// EnsureSchema creates the backing tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				doc JSONB NOT NULL,
				updated_at BIGINT NOT NULL DEFAULT 0
			)
		`, s.tables.Projects),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				uid TEXT PRIMARY KEY,
				doc JSONB NOT NULL,
				last_sign_in BIGINT NOT NULL DEFAULT 0
			)
		`, s.tables.Members),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Run consumes the Redis change feed and fans events into the local hub.
// Blocks until ctx is cancelled; no-op without a broadcaster.
func (s *Store) Run(ctx context.Context) error {
	if s.broadcaster == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.broadcaster.Run(ctx, s.hub.Publish)
}

// GetProject returns a snapshot of the project.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, s.tables.Projects)

	var raw []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get project", err)
	}

	return decodeProject(raw)
}

// PutProject replaces the whole document, creating it if absent.
func (s *Store) PutProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project id is required: %w", domain.ErrValidation)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, doc, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, s.tables.Projects)

	if _, err := s.pool.Exec(ctx, query, p.ID, raw, p.UpdatedAt); err != nil {
		return unavailable("put project", err)
	}

	s.notifyProject(ctx, p.ID)
	return nil
}

// UpdateProject runs fn inside a transaction holding a row lock, making the
// read-modify-write atomic across sessions and instances. This is the
// primitive lease acquisition relies on.
func (s *Store) UpdateProject(ctx context.Context, id string, fn store.UpdateFn) (*models.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable("begin update", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Warn("rollback failed", "project_id", id, "error", err)
		}
	}()

	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1 FOR UPDATE`, s.tables.Projects)
	var raw []byte
	err = tx.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("read for update", err)
	}

	p, err := decodeProject(raw)
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	next, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}

	update := fmt.Sprintf(`UPDATE %s SET doc = $1, updated_at = $2 WHERE id = $3`, s.tables.Projects)
	if _, err := tx.Exec(ctx, update, next, p.UpdatedAt, id); err != nil {
		return nil, unavailable("write update", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("commit update", err)
	}

	s.notifyProject(ctx, id)
	return p, nil
}

// DeleteProject removes the document entirely.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tables.Projects)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return unavailable("delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}

	s.notifyProject(ctx, id)
	return nil
}

// ListProjects returns all projects ordered by updatedAt descending.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s ORDER BY updated_at DESC`, s.tables.Projects)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, unavailable("list projects", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p, err := decodeProject(raw)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate projects", err)
	}

	return projects, nil
}

// WatchProject delivers a snapshot immediately and then after every write.
// A nil snapshot signals the project is absent or deleted.
func (s *Store) WatchProject(ctx context.Context, id string) (<-chan *models.Project, error) {
	want := notify.ProjectEvent(id)
	ch := notify.Watch(ctx, s.hub,
		func(ev string) bool { return ev == want },
		func(ctx context.Context) (*models.Project, bool) {
			snap, err := s.GetProject(ctx, id)
			if err == nil {
				return snap, true
			}
			if isNotFound(err) {
				return nil, true // deleted
			}
			return nil, false // transient read failure; retry on next event
		})
	return ch, nil
}

// WatchProjects delivers the full listing on subscribe and after every write.
func (s *Store) WatchProjects(ctx context.Context) (<-chan []models.Project, error) {
	ch := notify.Watch(ctx, s.hub,
		func(ev string) bool { return ev == notify.TopicProjects },
		func(ctx context.Context) ([]models.Project, bool) {
			listing, err := s.ListProjects(ctx)
			if err != nil {
				return nil, false
			}
			return listing, true
		})
	return ch, nil
}

// UpsertMember creates or refreshes a roster entry.
func (s *Store) UpsertMember(ctx context.Context, m *models.TeamMember) error {
	if m.UID == "" {
		return fmt.Errorf("member uid is required: %w", domain.ErrValidation)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode member: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (uid, doc, last_sign_in) VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE SET doc = EXCLUDED.doc, last_sign_in = EXCLUDED.last_sign_in
	`, s.tables.Members)

	if _, err := s.pool.Exec(ctx, query, m.UID, raw, m.LastSignIn); err != nil {
		return unavailable("upsert member", err)
	}

	s.notify(ctx, notify.TopicMembers)
	return nil
}

// ListMembers returns the roster sorted by display name.
func (s *Store) ListMembers(ctx context.Context) ([]models.TeamMember, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s ORDER BY doc->>'displayName'`, s.tables.Members)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, unavailable("list members", err)
	}
	defer rows.Close()

	members := []models.TeamMember{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		var m models.TeamMember
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate members", err)
	}

	return members, nil
}

// WatchMembers delivers the roster on subscribe and after every upsert.
func (s *Store) WatchMembers(ctx context.Context) (<-chan []models.TeamMember, error) {
	ch := notify.Watch(ctx, s.hub,
		func(ev string) bool { return ev == notify.TopicMembers },
		func(ctx context.Context) ([]models.TeamMember, bool) {
			roster, err := s.ListMembers(ctx)
			if err != nil {
				return nil, false
			}
			return roster, true
		})
	return ch, nil
}

func (s *Store) notifyProject(ctx context.Context, id string) {
	s.notify(ctx, notify.ProjectEvent(id))
	s.notify(ctx, notify.TopicProjects)
}

// notify publishes through Redis when configured (the Run loop echoes it
// back into the hub), otherwise straight into the hub.
func (s *Store) notify(ctx context.Context, event string) {
	if s.broadcaster == nil {
		s.hub.Publish(event)
		return
	}
	if err := s.broadcaster.Publish(ctx, event); err != nil {
		s.logger.Warn("change broadcast failed, delivering locally", "event", event, "error", err)
		s.hub.Publish(event)
	}
}

func decodeProject(raw []byte) (*models.Project, error) {
	var p models.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
}
