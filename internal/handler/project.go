// Package handler exposes the collaboration engine over HTTP: project CRUD,
// lease operations, prose editing through the session, board operations,
// drafting-assistant flows and the SSE change feeds.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/insidedeveloper888/draftio/internal/collab"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/httputil"
)

// ProjectHandler serves project CRUD, session and lease endpoints.
type ProjectHandler struct {
	sessions *collab.Sessions
	store    store.ProjectStore
	logger   *slog.Logger
}

// NewProjectHandler creates the project handler.
func NewProjectHandler(sessions *collab.Sessions, s store.ProjectStore, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{sessions: sessions, store: s, logger: logger}
}

// projectResponse is the envelope returned by every session-aware endpoint.
type projectResponse struct {
	Project   *models.Project   `json:"project"`
	LockState collab.LeaseState `json:"lockState"`
	Degraded  bool              `json:"degraded"`
}

func (h *ProjectHandler) respondSession(w http.ResponseWriter, status int, s *collab.Session) {
	httputil.RespondJSON(w, status, projectResponse{
		Project:   s.Snapshot(),
		LockState: s.LockState(),
		Degraded:  s.Degraded(),
	})
}

// HealthCheck reports liveness.
func (h *ProjectHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProjects returns all projects ordered by updatedAt descending.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// CreateProject makes a new project owned by the caller and opens a session
// on it.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	s, err := h.sessions.Create(r.Context(), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondSession(w, http.StatusCreated, s)
}

// OpenProject opens (or returns) the caller's session on a project.
func (h *ProjectHandler) OpenProject(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondSession(w, http.StatusOK, s)
}

// GetProject returns a point-in-time snapshot without opening a session.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	p, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, projectResponse{
		Project:   p,
		LockState: h.sessions.Leases().State(p, who, false),
	})
}

// CloseProject releases the caller's session, flushing and dropping the
// lease if held.
func (h *ProjectHandler) CloseProject(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	if err := h.sessions.Close(r.Context(), r.PathValue("id"), who); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProject removes the project and drops every open session on it.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.sessions.DropProject(id)
	w.WriteHeader(http.StatusNoContent)
}

// AcquireLease takes the edit lease for the caller's session.
func (h *ProjectHandler) AcquireLease(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	state, err := s.Acquire(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"lockState": state})
}

// ReleaseLease flushes and drops the lease. Idempotent.
func (h *ProjectHandler) ReleaseLease(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := s.Release(r.Context()); err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"lockState": s.LockState()})
}

// GetLease reports the caller's current lock state.
func (h *ProjectHandler) GetLease(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"lockState": s.LockState()})
}

// contentRequest carries a partial prose update. Nil fields are unchanged.
type contentRequest struct {
	Name           *string `json:"name"`
	SpecFunctional *string `json:"specFunctional"`
	SpecTechnical  *string `json:"specTechnical"`
	SpecPlan       *string `json:"specPlan"`
}

// UpdateContent applies prose edits through the session and persists them.
// Requires the caller to hold the lease.
func (h *ProjectHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	var req contentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := applyContent(s, req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := s.Save(r.Context()); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondSession(w, http.StatusOK, s)
}

func applyContent(s *collab.Session, req contentRequest) error {
	if req.Name != nil {
		if err := s.SetName(*req.Name); err != nil {
			return err
		}
	}
	if req.SpecFunctional != nil {
		if err := s.SetSpecFunctional(*req.SpecFunctional); err != nil {
			return err
		}
	}
	if req.SpecTechnical != nil {
		if err := s.SetSpecTechnical(*req.SpecTechnical); err != nil {
			return err
		}
	}
	if req.SpecPlan != nil {
		if err := s.SetSpecPlan(*req.SpecPlan); err != nil {
			return err
		}
	}
	return nil
}

// SaveProject flushes the session's current state to the store.
func (h *ProjectHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := s.Save(r.Context()); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondSession(w, http.StatusOK, s)
}
