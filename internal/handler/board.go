package handler

import (
	"log/slog"
	"net/http"

	"github.com/insidedeveloper888/draftio/internal/board"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
	"github.com/insidedeveloper888/draftio/internal/httputil"
)

// BoardHandler serves the task-board endpoints. Board operations are not
// lease-gated; every write goes through the store's transactional update.
type BoardHandler struct {
	board  *board.Board
	store  store.ProjectStore
	logger *slog.Logger
}

// NewBoardHandler creates the board handler.
func NewBoardHandler(b *board.Board, s store.ProjectStore, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{board: b, store: s, logger: logger}
}

// ListTasks returns the board's tasks, optionally filtered by status or
// milestone query parameters.
func (h *BoardHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	tasks := p.Tasks
	if status := r.URL.Query().Get("status"); status != "" {
		tasks = p.TasksByStatus(status)
	} else if milestone := r.URL.Query().Get("milestone"); milestone != "" {
		tasks = p.TasksByMilestone(milestone)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// AddTask creates a task on the board.
func (h *BoardHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	var req board.AddTaskRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.board.AddTask(r.Context(), r.PathValue("id"), who, req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]interface{}{"task": task})
}

// MoveTask transitions a task to a new column.
func (h *BoardHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.board.MoveTask(r.Context(), r.PathValue("id"), r.PathValue("taskId"), req.Status)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

// UpdateTask merges a partial task update.
func (h *BoardHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch board.TaskPatch
	if err := httputil.ParseJSON(w, r, &patch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.board.UpdateTask(r.Context(), r.PathValue("id"), r.PathValue("taskId"), patch)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

// DeleteTask removes a task and cascades the dependsOn cleanup.
func (h *BoardHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.board.DeleteTask(r.Context(), r.PathValue("id"), r.PathValue("taskId")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogTime appends a time entry against a task.
func (h *BoardHandler) LogTime(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	var req struct {
		Hours       float64 `json:"hours"`
		Description string  `json:"description"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.board.LogTime(r.Context(), r.PathValue("id"), r.PathValue("taskId"), who, req.Hours, req.Description)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]interface{}{"timeEntry": entry})
}

// DeleteTimeEntry removes a time entry and decrements the task's logged
// hours.
func (h *BoardHandler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.board.DeleteTimeEntry(r.Context(), r.PathValue("id"), r.PathValue("entryId")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddComment appends a comment to a task.
func (h *BoardHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	var req struct {
		Content string `json:"content"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.board.AddComment(r.Context(), r.PathValue("id"), r.PathValue("taskId"), who, req.Content)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]interface{}{"comment": comment})
}

// EditComment rewrites a comment; author only.
func (h *BoardHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)

	var req struct {
		Content string `json:"content"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.board.EditComment(r.Context(), r.PathValue("id"), r.PathValue("commentId"), who, req.Content)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"comment": comment})
}

// DeleteComment removes a comment; author only.
func (h *BoardHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	who := httputil.GetIdentity(r)
	if err := h.board.DeleteComment(r.Context(), r.PathValue("id"), r.PathValue("commentId"), who); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
