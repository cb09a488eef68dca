package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClampProjectName(t *testing.T) {
	long := strings.Repeat("x", 150)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "My Project", want: "My Project"},
		{name: "trims whitespace", in: "  padded  ", want: "padded"},
		{name: "empty becomes untitled", in: "", want: UntitledProjectName},
		{name: "whitespace only becomes untitled", in: "   ", want: UntitledProjectName},
		{name: "long name clamped", in: long, want: long[:MaxProjectNameLen]},
		// The bound is characters, not bytes: 60 two-byte runes fit.
		{name: "multibyte under limit", in: strings.Repeat("é", 60), want: strings.Repeat("é", 60)},
		{name: "multibyte clamped to rune count", in: strings.Repeat("é", 150), want: strings.Repeat("é", MaxProjectNameLen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampProjectName(tt.in)
			if got != tt.want {
				t.Errorf("ClampProjectName(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("ClampProjectName(%q) produced invalid UTF-8", tt.in)
			}
		})
	}
}

func TestTaskOverdueAndDueSoon(t *testing.T) {
	now := int64(1_700_000_000_000)
	day := int64(24 * 60 * 60 * 1000)
	past := now - day
	tomorrow := now + day
	nextWeek := now + 7*day

	tests := []struct {
		name     string
		task     Task
		overdue  bool
		dueSoon  bool
	}{
		{name: "no due date", task: Task{Status: TaskStatusTodo}},
		{name: "past due", task: Task{Status: TaskStatusTodo, DueDate: &past}, overdue: true},
		{name: "past due but done", task: Task{Status: TaskStatusDone, DueDate: &past}},
		{name: "due tomorrow", task: Task{Status: TaskStatusInProgress, DueDate: &tomorrow}, dueSoon: true},
		{name: "due tomorrow but done", task: Task{Status: TaskStatusDone, DueDate: &tomorrow}},
		{name: "due next week", task: Task{Status: TaskStatusTodo, DueDate: &nextWeek}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Overdue(now); got != tt.overdue {
				t.Errorf("Overdue = %v, want %v", got, tt.overdue)
			}
			if got := tt.task.DueSoon(now); got != tt.dueSoon {
				t.Errorf("DueSoon = %v, want %v", got, tt.dueSoon)
			}
		})
	}
}

func TestMilestoneProgress(t *testing.T) {
	tasks := []Task{
		{ID: "t1", MilestoneID: "m1", Status: TaskStatusDone},
		{ID: "t2", MilestoneID: "m1", Status: TaskStatusTodo},
		{ID: "t3", MilestoneID: "m1", Status: TaskStatusDone},
		{ID: "t4", MilestoneID: "m2", Status: TaskStatusDone},
		{ID: "t5", Status: TaskStatusDone},
	}

	done, total := MilestoneProgress(tasks, "m1")
	if done != 2 || total != 3 {
		t.Errorf("m1 progress = %d/%d, want 2/3", done, total)
	}
	done, total = MilestoneProgress(tasks, "empty")
	if done != 0 || total != 0 {
		t.Errorf("empty milestone progress = %d/%d, want 0/0", done, total)
	}
}

func TestTaskFilters(t *testing.T) {
	p := &Project{Tasks: []Task{
		{ID: "t1", Status: TaskStatusTodo, MilestoneID: "m1"},
		{ID: "t2", Status: TaskStatusDone, MilestoneID: "m1"},
		{ID: "t3", Status: TaskStatusTodo},
	}}

	todo := p.TasksByStatus(TaskStatusTodo)
	if len(todo) != 2 || todo[0].ID != "t1" || todo[1].ID != "t3" {
		t.Errorf("TasksByStatus(todo) = %+v", todo)
	}
	m1 := p.TasksByMilestone("m1")
	if len(m1) != 2 || m1[0].ID != "t1" || m1[1].ID != "t2" {
		t.Errorf("TasksByMilestone(m1) = %+v", m1)
	}
	if got := p.TasksByMilestone("none"); len(got) != 0 {
		t.Errorf("TasksByMilestone(none) = %+v", got)
	}

	// Filters hand out copies, never aliases into the board.
	todo[0].Title = "mutated"
	if p.Tasks[0].Title != "" {
		t.Error("filter result aliases the board slice")
	}
}

func TestTimeEntryLookup(t *testing.T) {
	p := &Project{TimeEntries: []TimeEntry{
		{ID: "e1", Hours: 2},
		{ID: "e2", Hours: 3},
	}}

	if got := p.TimeEntry("e2"); got == nil || got.Hours != 3 {
		t.Errorf("TimeEntry(e2) = %+v, want hours 3", got)
	}
	if got := p.TimeEntry("missing"); got != nil {
		t.Errorf("TimeEntry(missing) = %+v, want nil", got)
	}
}

func TestProjectCloneIsDeep(t *testing.T) {
	hours := 4.0
	due := int64(123)
	p := &Project{
		ID:    "doc",
		Lease: &Lease{HolderID: "u1"},
		Transcript: []Message{
			{Role: MessageRoleUser, Content: "hi", Attachment: &Attachment{Data: "abc"}},
		},
		Tasks:       []Task{{ID: "t1", EstimatedHours: &hours, DueDate: &due, DependsOn: []string{"t0"}}},
		Milestones:  []Milestone{{ID: "m1", TargetDate: &due}},
		TimeEntries: []TimeEntry{{ID: "e1", Hours: 1}},
		Comments:    []TaskComment{{ID: "c1", Content: "note"}},
	}

	clone := p.Clone()
	clone.Lease.HolderID = "u2"
	clone.Transcript[0].Attachment.Data = "zzz"
	clone.Tasks[0].DependsOn[0] = "other"
	*clone.Tasks[0].EstimatedHours = 99
	*clone.Milestones[0].TargetDate = 999
	clone.Comments[0].Content = "edited"

	if p.Lease.HolderID != "u1" {
		t.Error("lease aliased")
	}
	if p.Transcript[0].Attachment.Data != "abc" {
		t.Error("attachment aliased")
	}
	if p.Tasks[0].DependsOn[0] != "t0" || *p.Tasks[0].EstimatedHours != 4.0 {
		t.Error("task aliased")
	}
	if *p.Milestones[0].TargetDate != 123 {
		t.Error("milestone aliased")
	}
	if p.Comments[0].Content != "note" {
		t.Error("comment aliased")
	}
}

func TestCloneNil(t *testing.T) {
	var p *Project
	if p.Clone() != nil {
		t.Error("nil clone should stay nil")
	}
}
