package models

// Task status constants. Any transition between statuses is legal; entering
// done stamps CompletedAt and leaving done clears it.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusInReview   = "in_review"
	TaskStatusDone       = "done"
)

// Task priority constants.
const (
	TaskPriorityHigh   = "high"
	TaskPriorityMedium = "medium"
	TaskPriorityLow    = "low"
)

// dueSoonWindowMillis is how far ahead of a due date a task counts as due
// soon (2 days).
const dueSoonWindowMillis = 2 * 24 * 60 * 60 * 1000

// ValidTaskStatus reports whether s is one of the four board columns.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone:
		return true
	}
	return false
}

// ValidTaskPriority reports whether p is a known priority.
func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

// Task is one card on the board. DependsOn may contain ids of since-deleted
// tasks; dangling references are tolerated and have no effect.
type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	AssigneeIDs    []string `json:"assigneeIds"`
	EstimatedHours *float64 `json:"estimatedHours"`
	LoggedHours    float64  `json:"loggedHours"`
	DueDate        *int64   `json:"dueDate"`
	StartDate      *int64   `json:"startDate"`
	CompletedAt    *int64   `json:"completedAt"`
	DependsOn      []string `json:"dependsOn"`
	MilestoneID    string   `json:"milestoneId,omitempty"`
	OrderIndex     int      `json:"orderIndex"`
	CreatedBy      string   `json:"createdBy"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
}

// Overdue reports whether the task is past due and not done.
func (t *Task) Overdue(nowMillis int64) bool {
	return t.DueDate != nil && *t.DueDate < nowMillis && t.Status != TaskStatusDone
}

// DueSoon reports whether the task is due within the next two days and not
// done.
func (t *Task) DueSoon(nowMillis int64) bool {
	return t.DueDate != nil &&
		*t.DueDate > nowMillis &&
		*t.DueDate < nowMillis+dueSoonWindowMillis &&
		t.Status != TaskStatusDone
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	out := *t
	out.AssigneeIDs = append([]string(nil), t.AssigneeIDs...)
	out.DependsOn = append([]string(nil), t.DependsOn...)
	if t.EstimatedHours != nil {
		v := *t.EstimatedHours
		out.EstimatedHours = &v
	}
	out.DueDate = cloneInt64(t.DueDate)
	out.StartDate = cloneInt64(t.StartDate)
	out.CompletedAt = cloneInt64(t.CompletedAt)
	return &out
}

// Milestone groups tasks. Progress is always derived from child task
// statuses, never stored.
type Milestone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TargetDate  *int64 `json:"targetDate"`
	CompletedAt *int64 `json:"completedAt"`
	OrderIndex  int    `json:"orderIndex"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// TimeEntry is an append-only record of hours logged against a task.
type TimeEntry struct {
	ID          string  `json:"id"`
	TaskID      string  `json:"taskId"`
	UserID      string  `json:"userId"`
	UserName    string  `json:"userName,omitempty"`
	UserAvatar  string  `json:"userAvatar,omitempty"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
	LoggedAt    int64   `json:"loggedAt"`
}

// TaskComment is a comment on a task. UpdatedAt nil means never edited.
// Only the authoring user may edit or delete it.
type TaskComment struct {
	ID         string `json:"id"`
	TaskID     string `json:"taskId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName,omitempty"`
	UserAvatar string `json:"userAvatar,omitempty"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  *int64 `json:"updatedAt"`
}

// MilestoneProgress returns done and total child task counts for a milestone.
func MilestoneProgress(tasks []Task, milestoneID string) (done, total int) {
	for i := range tasks {
		if tasks[i].MilestoneID != milestoneID {
			continue
		}
		total++
		if tasks[i].Status == TaskStatusDone {
			done++
		}
	}
	return done, total
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneMilestone(m Milestone) Milestone {
	m.TargetDate = cloneInt64(m.TargetDate)
	m.CompletedAt = cloneInt64(m.CompletedAt)
	return m
}

func cloneComment(c TaskComment) TaskComment {
	c.UpdatedAt = cloneInt64(c.UpdatedAt)
	return c
}
