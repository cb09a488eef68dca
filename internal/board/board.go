// Package board manages the task-board collections of a project: status
// transitions, dependency bookkeeping, time logging and comments. Board
// writes are fine-grained transactional updates, deliberately not gated by
// the edit lease: many collaborators touch the board while one person holds
// the prose lease, and collisions resolve last-write-wins at collection
// granularity.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/domain/store"
)

// Board executes task-board operations against the project store.
type Board struct {
	store  store.ProjectStore
	logger *slog.Logger
	now    func() time.Time
}

// NewBoard creates a board service.
func NewBoard(s store.ProjectStore, logger *slog.Logger) *Board {
	return &Board{store: s, logger: logger, now: time.Now}
}

// WithClock overrides the time source for tests.
func (b *Board) WithClock(now func() time.Time) *Board {
	b.now = now
	return b
}

// AddTaskRequest carries the fields for a manually created task.
type AddTaskRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	AssigneeIDs    []string `json:"assigneeIds"`
	EstimatedHours *float64 `json:"estimatedHours"`
	DueDate        *int64   `json:"dueDate"`
	StartDate      *int64   `json:"startDate"`
	DependsOn      []string `json:"dependsOn"`
	MilestoneID    string   `json:"milestoneId"`
}

// Validate checks the request before any store call.
func (r AddTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Status, validation.In(
			models.TaskStatusTodo, models.TaskStatusInProgress,
			models.TaskStatusInReview, models.TaskStatusDone)),
		validation.Field(&r.Priority, validation.In(
			models.TaskPriorityHigh, models.TaskPriorityMedium, models.TaskPriorityLow)),
		validation.Field(&r.EstimatedHours, validation.By(nonNegativeHours)),
	)
}

// TaskPatch carries a partial task update. Nil fields are unchanged.
type TaskPatch struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Status         *string  `json:"status"`
	Priority       *string  `json:"priority"`
	AssigneeIDs    []string `json:"assigneeIds"`
	EstimatedHours *float64 `json:"estimatedHours"`
	DueDate        *int64   `json:"dueDate"`
	StartDate      *int64   `json:"startDate"`
	DependsOn      []string `json:"dependsOn"`
	MilestoneID    *string  `json:"milestoneId"`
	OrderIndex     *int     `json:"orderIndex"`
}

// Validate checks the patch before any store call.
func (p TaskPatch) Validate() error {
	if p.Status != nil && !models.ValidTaskStatus(*p.Status) {
		return &domain.ValidationError{Message: fmt.Sprintf("unknown status %q", *p.Status)}
	}
	if p.Priority != nil && !models.ValidTaskPriority(*p.Priority) {
		return &domain.ValidationError{Message: fmt.Sprintf("unknown priority %q", *p.Priority)}
	}
	if p.EstimatedHours != nil && *p.EstimatedHours < 0 {
		return &domain.ValidationError{Message: "estimatedHours must be non-negative"}
	}
	return nil
}

func nonNegativeHours(value interface{}) error {
	v, _ := value.(*float64)
	if v != nil && *v < 0 {
		return fmt.Errorf("must be non-negative")
	}
	return nil
}

// AddTask appends a new task to the board.
func (b *Board) AddTask(ctx context.Context, projectID string, who *models.Identity, req AddTaskRequest) (*models.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	var created models.Task
	err := b.update(ctx, projectID, func(p *models.Project) error {
		nowMillis := b.nowMillis()
		task := models.Task{
			ID:             uuid.NewString(),
			Title:          req.Title,
			Description:    req.Description,
			Status:         status,
			Priority:       priority,
			AssigneeIDs:    append([]string{}, req.AssigneeIDs...),
			EstimatedHours: req.EstimatedHours,
			DueDate:        req.DueDate,
			StartDate:      req.StartDate,
			DependsOn:      sanitizeDependsOn(req.DependsOn, ""),
			MilestoneID:    req.MilestoneID,
			OrderIndex:     len(p.Tasks),
			CreatedBy:      who.ID,
			CreatedAt:      nowMillis,
			UpdatedAt:      nowMillis,
		}
		task.DependsOn = sanitizeDependsOn(task.DependsOn, task.ID)
		if status == models.TaskStatusDone {
			task.CompletedAt = &nowMillis
		}
		p.Tasks = append(p.Tasks, task)
		bump(p, nowMillis)
		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("task added", "project_id", projectID, "task_id", created.ID)
	return created.Clone(), nil
}

// MoveTask transitions a task to a new board column. All transitions are
// legal; entering done stamps completedAt and leaving done clears it.
func (b *Board) MoveTask(ctx context.Context, projectID, taskID, newStatus string) (*models.Task, error) {
	if !models.ValidTaskStatus(newStatus) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown status %q", newStatus)}
	}

	var moved *models.Task
	err := b.update(ctx, projectID, func(p *models.Project) error {
		task := p.Task(taskID)
		if task == nil {
			return &domain.NotFoundError{Message: fmt.Sprintf("task %s not found", taskID)}
		}
		nowMillis := b.nowMillis()
		applyStatus(task, newStatus, nowMillis)
		task.UpdatedAt = nowMillis
		bump(p, nowMillis)
		moved = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// UpdateTask merges a partial update into a task, applying the completedAt
// rule when the patch moves the task into or out of done.
func (b *Board) UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Task
	err := b.update(ctx, projectID, func(p *models.Project) error {
		task := p.Task(taskID)
		if task == nil {
			return &domain.NotFoundError{Message: fmt.Sprintf("task %s not found", taskID)}
		}
		nowMillis := b.nowMillis()
		applyPatch(task, patch, nowMillis)
		task.UpdatedAt = nowMillis
		bump(p, nowMillis)
		updated = task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTask removes a task and strips its id from every other task's
// dependsOn set. Both effects land in the same atomic update.
func (b *Board) DeleteTask(ctx context.Context, projectID, taskID string) error {
	err := b.update(ctx, projectID, func(p *models.Project) error {
		idx := -1
		for i := range p.Tasks {
			if p.Tasks[i].ID == taskID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &domain.NotFoundError{Message: fmt.Sprintf("task %s not found", taskID)}
		}
		p.Tasks = append(p.Tasks[:idx], p.Tasks[idx+1:]...)
		for i := range p.Tasks {
			p.Tasks[i].DependsOn = removeID(p.Tasks[i].DependsOn, taskID)
		}
		bump(p, b.nowMillis())
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.Info("task deleted", "project_id", projectID, "task_id", taskID)
	return nil
}

// LogTime appends a time entry and increments the task's loggedHours by the
// same amount, atomically.
func (b *Board) LogTime(ctx context.Context, projectID, taskID string, who *models.Identity, hours float64, description string) (*models.TimeEntry, error) {
	if hours <= 0 {
		return nil, &domain.ValidationError{Message: "hours must be positive"}
	}

	var entry models.TimeEntry
	err := b.update(ctx, projectID, func(p *models.Project) error {
		task := p.Task(taskID)
		if task == nil {
			return &domain.NotFoundError{Message: fmt.Sprintf("task %s not found", taskID)}
		}
		nowMillis := b.nowMillis()
		entry = models.TimeEntry{
			ID:          uuid.NewString(),
			TaskID:      taskID,
			UserID:      who.ID,
			UserName:    who.DisplayName,
			UserAvatar:  who.PhotoURL,
			Hours:       hours,
			Description: description,
			LoggedAt:    nowMillis,
		}
		p.TimeEntries = append(p.TimeEntries, entry)
		task.LoggedHours += hours
		task.UpdatedAt = nowMillis
		bump(p, nowMillis)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteTimeEntry removes an entry and decrements the owning task's
// loggedHours by the entry's hours, floored at zero, atomically.
func (b *Board) DeleteTimeEntry(ctx context.Context, projectID, entryID string) error {
	return b.update(ctx, projectID, func(p *models.Project) error {
		found := p.TimeEntry(entryID)
		if found == nil {
			return &domain.NotFoundError{Message: fmt.Sprintf("time entry %s not found", entryID)}
		}
		entry := *found

		kept := p.TimeEntries[:0]
		for _, e := range p.TimeEntries {
			if e.ID != entryID {
				kept = append(kept, e)
			}
		}
		p.TimeEntries = kept

		nowMillis := b.nowMillis()
		if task := p.Task(entry.TaskID); task != nil {
			task.LoggedHours -= entry.Hours
			if task.LoggedHours < 0 {
				task.LoggedHours = 0
			}
			task.UpdatedAt = nowMillis
		}
		bump(p, nowMillis)
		return nil
	})
}

// AddComment appends a comment to a task's log.
func (b *Board) AddComment(ctx context.Context, projectID, taskID string, who *models.Identity, content string) (*models.TaskComment, error) {
	if content == "" {
		return nil, &domain.ValidationError{Message: "comment content must not be empty"}
	}

	var comment models.TaskComment
	err := b.update(ctx, projectID, func(p *models.Project) error {
		if p.Task(taskID) == nil {
			return &domain.NotFoundError{Message: fmt.Sprintf("task %s not found", taskID)}
		}
		nowMillis := b.nowMillis()
		comment = models.TaskComment{
			ID:         uuid.NewString(),
			TaskID:     taskID,
			UserID:     who.ID,
			UserName:   who.DisplayName,
			UserAvatar: who.PhotoURL,
			Content:    content,
			CreatedAt:  nowMillis,
		}
		p.Comments = append(p.Comments, comment)
		bump(p, nowMillis)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// EditComment rewrites a comment's content. Only the author may edit,
// enforced here rather than trusting the caller's UI.
func (b *Board) EditComment(ctx context.Context, projectID, commentID string, who *models.Identity, content string) (*models.TaskComment, error) {
	if content == "" {
		return nil, &domain.ValidationError{Message: "comment content must not be empty"}
	}

	var edited models.TaskComment
	err := b.update(ctx, projectID, func(p *models.Project) error {
		comment := p.Comment(commentID)
		if comment == nil {
			return &domain.NotFoundError{Message: fmt.Sprintf("comment %s not found", commentID)}
		}
		if comment.UserID != who.ID {
			return &domain.ForbiddenError{Message: "only the author may edit a comment"}
		}
		nowMillis := b.nowMillis()
		comment.Content = content
		comment.UpdatedAt = &nowMillis
		bump(p, nowMillis)
		edited = *comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

// DeleteComment removes a comment. Only the author may delete.
func (b *Board) DeleteComment(ctx context.Context, projectID, commentID string, who *models.Identity) error {
	return b.update(ctx, projectID, func(p *models.Project) error {
		idx := -1
		for i := range p.Comments {
			if p.Comments[i].ID == commentID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &domain.NotFoundError{Message: fmt.Sprintf("comment %s not found", commentID)}
		}
		if p.Comments[idx].UserID != who.ID {
			return &domain.ForbiddenError{Message: "only the author may delete a comment"}
		}
		p.Comments = append(p.Comments[:idx], p.Comments[idx+1:]...)
		bump(p, b.nowMillis())
		return nil
	})
}

// update wraps the store's transactional read-modify-write. On write
// failure the operation is abandoned wholesale; there is no retry queue.
func (b *Board) update(ctx context.Context, projectID string, fn store.UpdateFn) error {
	_, err := b.store.UpdateProject(ctx, projectID, fn)
	return err
}

func (b *Board) nowMillis() int64 {
	return models.Millis(b.now())
}

// applyStatus performs the transition side effects shared by move and patch.
func applyStatus(t *models.Task, newStatus string, nowMillis int64) {
	wasDone := t.Status == models.TaskStatusDone
	isDone := newStatus == models.TaskStatusDone
	t.Status = newStatus
	if isDone && !wasDone {
		stamp := nowMillis
		t.CompletedAt = &stamp
	} else if !isDone {
		t.CompletedAt = nil
	}
}

func applyPatch(t *models.Task, patch TaskPatch, nowMillis int64) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		applyStatus(t, *patch.Status, nowMillis)
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssigneeIDs != nil {
		t.AssigneeIDs = append([]string{}, patch.AssigneeIDs...)
	}
	if patch.EstimatedHours != nil {
		t.EstimatedHours = patch.EstimatedHours
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.StartDate != nil {
		t.StartDate = patch.StartDate
	}
	if patch.DependsOn != nil {
		t.DependsOn = sanitizeDependsOn(patch.DependsOn, t.ID)
	}
	if patch.MilestoneID != nil {
		t.MilestoneID = *patch.MilestoneID
	}
	if patch.OrderIndex != nil {
		t.OrderIndex = *patch.OrderIndex
	}
}

// sanitizeDependsOn deduplicates and drops a self-reference.
func sanitizeDependsOn(ids []string, selfID string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || id == selfID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// bump advances the document sort key, keeping it non-decreasing even when
// the clock reads behind the last write.
func bump(p *models.Project, nowMillis int64) {
	if nowMillis > p.UpdatedAt {
		p.UpdatedAt = nowMillis
	} else {
		p.UpdatedAt++
	}
}
