package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Message roles within a project transcript.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

const (
	// DefaultProjectName is used when a project is created without a name.
	DefaultProjectName = "New Project"

	// UntitledProjectName replaces an empty name on rename.
	UntitledProjectName = "Untitled Project"

	// MaxProjectNameLen is the display-name clamp applied on every rename.
	MaxProjectNameLen = 100
)

// Attachment is an inline file carried on a transcript message.
// The payload is base64; the core never decodes it.
type Attachment struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// Message is one entry in a project's append-only transcript.
type Message struct {
	Role        string      `json:"role"`
	Content     string      `json:"content"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	PhotoURL    string      `json:"photoURL,omitempty"`
	Timestamp   int64       `json:"timestamp,omitempty"`
}

// Lease records the current exclusive edit-lease holder of a project.
// A nil lease means the project is unlocked.
type Lease struct {
	HolderID          string `json:"holderId"`
	HolderDisplayName string `json:"holderDisplayName"`
	HolderAvatar      string `json:"holderAvatar,omitempty"`
	AcquiredAt        int64  `json:"acquiredAt"`
	LastRenewedAt     int64  `json:"lastRenewedAt"`
}

// Project is the unit of collaboration: three spec blobs, a chat transcript,
// the edit lease, and the task-board collections. All timestamps are epoch
// milliseconds, matching the wire format of the document store.
type Project struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	SpecFunctional string  `json:"specFunctional"`
	SpecTechnical  string  `json:"specTechnical"`
	SpecPlan       string  `json:"specPlan"`
	Transcript     []Message `json:"transcript"`

	// OwnerID is set once at creation and never overwritten by later saves.
	OwnerID string `json:"ownerId"`

	// Denormalized metadata about the most recent writer.
	LastWriterID          string `json:"lastWriterId,omitempty"`
	LastWriterDisplayName string `json:"lastWriterDisplayName,omitempty"`
	LastWriterAvatar      string `json:"lastWriterAvatar,omitempty"`

	// UpdatedAt is the list sort key; non-decreasing within a session.
	UpdatedAt int64 `json:"updatedAt"`

	Lease *Lease `json:"lease,omitempty"`

	Tasks       []Task        `json:"tasks"`
	Milestones  []Milestone   `json:"milestones"`
	TimeEntries []TimeEntry   `json:"timeEntries"`
	Comments    []TaskComment `json:"comments"`
}

// ClampProjectName trims, bounds to MaxProjectNameLen characters and
// substitutes the untitled placeholder for empty input. The bound counts
// runes, not bytes, so multibyte names are never cut mid-character.
func ClampProjectName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return UntitledProjectName
	}
	if utf8.RuneCountInString(trimmed) > MaxProjectNameLen {
		return string([]rune(trimmed)[:MaxProjectNameLen])
	}
	return trimmed
}

// Millis converts a time to the epoch-millisecond representation used
// throughout the document model.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Task returns a pointer into p.Tasks for the given id, or nil.
func (p *Project) Task(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// TasksByStatus returns copies of the tasks in the given board column, in
// board order.
func (p *Project) TasksByStatus(status string) []Task {
	out := make([]Task, 0)
	for i := range p.Tasks {
		if p.Tasks[i].Status == status {
			out = append(out, *p.Tasks[i].Clone())
		}
	}
	return out
}

// TasksByMilestone returns copies of the tasks attached to a milestone, in
// board order.
func (p *Project) TasksByMilestone(milestoneID string) []Task {
	out := make([]Task, 0)
	for i := range p.Tasks {
		if p.Tasks[i].MilestoneID == milestoneID {
			out = append(out, *p.Tasks[i].Clone())
		}
	}
	return out
}

// TimeEntry returns a pointer into p.TimeEntries for the given id, or nil.
func (p *Project) TimeEntry(id string) *TimeEntry {
	for i := range p.TimeEntries {
		if p.TimeEntries[i].ID == id {
			return &p.TimeEntries[i]
		}
	}
	return nil
}

// Comment returns a pointer into p.Comments for the given id, or nil.
func (p *Project) Comment(id string) *TaskComment {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the project. Store implementations and the
// local session hand out clones so that callers can never mutate shared state
// through an aliased slice.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	if p.Lease != nil {
		lease := *p.Lease
		out.Lease = &lease
	}
	out.Transcript = make([]Message, len(p.Transcript))
	for i, m := range p.Transcript {
		out.Transcript[i] = m
		if m.Attachment != nil {
			att := *m.Attachment
			out.Transcript[i].Attachment = &att
		}
	}
	out.Tasks = make([]Task, len(p.Tasks))
	for i := range p.Tasks {
		out.Tasks[i] = *p.Tasks[i].Clone()
	}
	out.Milestones = append([]Milestone(nil), p.Milestones...)
	for i := range p.Milestones {
		out.Milestones[i] = cloneMilestone(p.Milestones[i])
	}
	out.TimeEntries = append([]TimeEntry(nil), p.TimeEntries...)
	out.Comments = append([]TaskComment(nil), p.Comments...)
	for i := range p.Comments {
		out.Comments[i] = cloneComment(p.Comments[i])
	}
	return &out
}
