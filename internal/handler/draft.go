package handler

import (
	"log/slog"
	"net/http"

	"github.com/insidedeveloper888/draftio/internal/assistant"
	"github.com/insidedeveloper888/draftio/internal/board"
	"github.com/insidedeveloper888/draftio/internal/collab"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/httputil"
)

// DraftHandler serves the drafting-assistant flows: chat-driven spec
// drafting, plan extraction, and importing an extraction onto the board.
type DraftHandler struct {
	sessions *collab.Sessions
	provider assistant.Provider
	board    *board.Board
	logger   *slog.Logger
}

// NewDraftHandler creates the drafting handler.
func NewDraftHandler(sessions *collab.Sessions, provider assistant.Provider, b *board.Board, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{sessions: sessions, provider: provider, board: b, logger: logger}
}

type chatRequest struct {
	Message    string             `json:"message"`
	Attachment *models.Attachment `json:"attachment"`
}

type chatResponse struct {
	Project      *models.Project   `json:"project"`
	LockState    collab.LeaseState `json:"lockState"`
	ChatResponse string            `json:"chatResponse"`
}

// Chat appends the user's message, asks the assistant for a draft, applies
// the returned documents and persists in one save. Requires the lease: the
// assistant rewrites prose fields.
func (h *DraftHandler) Chat(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	var req chatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		httputil.RespondError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	snap := s.Snapshot()
	if snap == nil {
		httputil.RespondError(w, http.StatusNotFound, "project no longer exists")
		return
	}

	if err := s.AppendMessage(models.Message{
		Role:        models.MessageRoleUser,
		Content:     req.Message,
		Attachment:  req.Attachment,
		DisplayName: who.DisplayName,
		PhotoURL:    who.PhotoURL,
	}); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.provider.Draft(r.Context(), &assistant.DraftRequest{
		Input:          req.Message,
		Attachment:     req.Attachment,
		History:        snap.Transcript,
		ProjectName:    snap.Name,
		SpecFunctional: snap.SpecFunctional,
		SpecTechnical:  snap.SpecTechnical,
		SpecPlan:       snap.SpecPlan,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.applyDraft(s, result); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := s.Save(r.Context()); err != nil {
		respondError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chatResponse{
		Project:      s.Snapshot(),
		LockState:    s.LockState(),
		ChatResponse: result.ChatResponse,
	})
}

func (h *DraftHandler) applyDraft(s *collab.Session, result *assistant.DraftResult) error {
	if result.ProjectName != "" {
		if err := s.SetName(result.ProjectName); err != nil {
			return err
		}
	}
	if result.SpecFunctional != "" {
		if err := s.SetSpecFunctional(result.SpecFunctional); err != nil {
			return err
		}
	}
	if result.SpecTechnical != "" {
		if err := s.SetSpecTechnical(result.SpecTechnical); err != nil {
			return err
		}
	}
	if result.SpecPlan != "" {
		if err := s.SetSpecPlan(result.SpecPlan); err != nil {
			return err
		}
	}
	return s.AppendMessage(models.Message{
		Role:    models.MessageRoleAssistant,
		Content: result.ChatResponse,
	})
}

// Extract runs the assistant over the current plan and returns task and
// milestone candidates for the user to select from. Nothing is written.
func (h *DraftHandler) Extract(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	s, err := h.sessions.Open(r.Context(), r.PathValue("id"), who)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	snap := s.Snapshot()
	if snap == nil {
		httputil.RespondError(w, http.StatusNotFound, "project no longer exists")
		return
	}
	if snap.SpecPlan == "" {
		httputil.RespondError(w, http.StatusBadRequest, "the implementation plan is empty")
		return
	}

	extraction, err := h.provider.Extract(r.Context(), snap.SpecPlan)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, extraction)
}

type importRequest struct {
	Tasks      []board.ImportTask      `json:"tasks"`
	Milestones []board.ImportMilestone `json:"milestones"`
}

// Import bulk-creates the selected tasks and milestones on the board in one
// atomic update.
func (h *DraftHandler) Import(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	var req importRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.board.ImportExtraction(r.Context(), r.PathValue("id"), who, req.Tasks, req.Milestones)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, result)
}
