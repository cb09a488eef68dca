package collab

import (
	"context"
	"log/slog"

	"github.com/insidedeveloper888/draftio/internal/domain/store"
)

// Reconciler consumes the document store's push feed for one session's
// project and folds each snapshot into the session under the two-tier
// consistency rules: prose suppressed while the snapshot carries our own
// lease, board collections applied always.
type Reconciler struct {
	session *Session
	store   store.ProjectStore
	logger  *slog.Logger
}

// Run blocks consuming snapshots until ctx is cancelled or the watch
// channel closes.
func (r *Reconciler) Run(ctx context.Context) error {
	ch, err := r.store.WatchProject(ctx, r.session.ProjectID())
	if err != nil {
		return err
	}

	for snap := range ch {
		if snap == nil {
			r.logger.Info("watched project deleted", "project_id", r.session.ProjectID())
		}
		r.session.applyRemote(snap)
	}
	return ctx.Err()
}
