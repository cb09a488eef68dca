package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/export"
	"github.com/insidedeveloper888/draftio/internal/httputil"
)

// RosterHandler serves the team roster used for avatar and name resolution
// across the board.
type RosterHandler struct {
	store  store.ProjectStore
	logger *slog.Logger
}

// NewRosterHandler creates the roster handler.
func NewRosterHandler(s store.ProjectStore, logger *slog.Logger) *RosterHandler {
	return &RosterHandler{store: s, logger: logger}
}

// ListMembers returns every known team member.
func (h *RosterHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListMembers(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// TouchMe upserts the caller's roster entry, refreshing lastSignIn. Called
// by clients on sign-in.
func (h *RosterHandler) TouchMe(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	member := who.Member(models.Millis(time.Now()))
	if err := h.store.UpsertMember(r.Context(), member); err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"member": member})
}

// ExportHandler serves the markdown export of the spec documents.
type ExportHandler struct {
	store  store.ProjectStore
	logger *slog.Logger
}

// NewExportHandler creates the export handler.
func NewExportHandler(s store.ProjectStore, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{store: s, logger: logger}
}

// Export streams one spec document as a markdown download.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	artifact, err := export.Render(p, r.PathValue("kind"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Body)
}
