package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/insidedeveloper888/draftio/internal/collab"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/handler/sse"
	"github.com/insidedeveloper888/draftio/internal/httputil"
)

const keepAliveInterval = 15 * time.Second

// StreamHandler serves the SSE change feeds: per-document snapshots with
// derived lock state, the workspace listing, and the team roster.
type StreamHandler struct {
	store    store.ProjectStore
	sessions *collab.Sessions
	logger   *slog.Logger
}

// NewStreamHandler creates the stream handler.
func NewStreamHandler(s store.ProjectStore, sessions *collab.Sessions, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{store: s, sessions: sessions, logger: logger}
}

// ProjectStream pushes a snapshot plus the caller's derived lock state on
// subscribe and after every write to the project. A null project event
// signals deletion.
func (h *StreamHandler) ProjectStream(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	projectID := r.PathValue("id")

	snapshots, err := h.store.WatchProject(r.Context(), projectID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				return
			}
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			payload := projectResponse{
				Project:   snap,
				LockState: h.sessions.Leases().State(snap, who, false),
			}
			if err := writer.WriteEvent("project", payload); err != nil {
				h.logger.Debug("project stream closed", "project_id", projectID, "error", err)
				return
			}
		}
	}
}

// ListingStream pushes the full project listing on subscribe and after
// every write anywhere in the workspace.
func (h *StreamHandler) ListingStream(w http.ResponseWriter, r *http.Request) {
	listings, err := h.store.WatchProjects(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				return
			}
		case listing, ok := <-listings:
			if !ok {
				return
			}
			if err := writer.WriteEvent("projects", map[string]interface{}{"projects": listing}); err != nil {
				return
			}
		}
	}
}

// MembersStream pushes the roster on subscribe and after every upsert.
func (h *StreamHandler) MembersStream(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.store.WatchMembers(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				return
			}
		case roster, ok := <-rosters:
			if !ok {
				return
			}
			if err := writer.WriteEvent("members", map[string]interface{}{"members": roster}); err != nil {
				return
			}
		}
	}
}
