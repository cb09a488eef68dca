package board

import (
	"context"
	"errors"
	"testing"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

func TestImportExtractionResolvesReferences(t *testing.T) {
	b, s := newTestBoard(t)

	result, err := b.ImportExtraction(context.Background(), "doc", alice,
		[]ImportTask{
			{Title: "Design schema", MilestoneName: "Foundations"},
			{Title: "Build API", DependsOn: []string{"Design schema"}, MilestoneName: "Foundations"},
			{Title: "Write frontend", DependsOn: []string{"Build API", "Design schema"}},
		},
		[]ImportMilestone{
			{Name: "Foundations", Description: "Core plumbing"},
		})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(result.Tasks) != 3 || len(result.Milestones) != 1 {
		t.Fatalf("result = %d tasks, %d milestones", len(result.Tasks), len(result.Milestones))
	}

	byTitle := make(map[string]models.Task, len(result.Tasks))
	for _, task := range result.Tasks {
		byTitle[task.Title] = task
	}

	api := byTitle["Build API"]
	if len(api.DependsOn) != 1 || api.DependsOn[0] != byTitle["Design schema"].ID {
		t.Errorf("Build API dependsOn = %v, want [Design schema id]", api.DependsOn)
	}
	fe := byTitle["Write frontend"]
	if len(fe.DependsOn) != 2 {
		t.Errorf("Write frontend dependsOn = %v, want two resolved ids", fe.DependsOn)
	}

	ms := result.Milestones[0]
	if byTitle["Design schema"].MilestoneID != ms.ID || byTitle["Build API"].MilestoneID != ms.ID {
		t.Error("milestoneName did not resolve to the imported milestone's id")
	}
	if fe.MilestoneID != "" {
		t.Errorf("unreferenced milestone set on %q: %q", fe.Title, fe.MilestoneID)
	}

	// Everything lands as todo regardless of what the extractor claimed.
	for _, task := range result.Tasks {
		if task.Status != models.TaskStatusTodo {
			t.Errorf("%q status = %q, want todo", task.Title, task.Status)
		}
	}

	p := loadProject(t, s)
	if len(p.Tasks) != 3 || len(p.Milestones) != 1 {
		t.Errorf("persisted %d tasks, %d milestones", len(p.Tasks), len(p.Milestones))
	}
}

func TestImportExtractionDropsUnresolvable(t *testing.T) {
	b, _ := newTestBoard(t)

	result, err := b.ImportExtraction(context.Background(), "doc", alice,
		[]ImportTask{
			{Title: "Real task", DependsOn: []string{"Phantom task", "Real task"}, MilestoneName: "No such milestone"},
		},
		nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	task := result.Tasks[0]
	if len(task.DependsOn) != 0 {
		t.Errorf("dependsOn = %v, want unresolvable and self references dropped", task.DependsOn)
	}
	if task.MilestoneID != "" {
		t.Errorf("milestoneId = %q, want empty for unknown milestone name", task.MilestoneID)
	}
}

func TestImportExtractionMergesWithExisting(t *testing.T) {
	b, s := newTestBoard(t)
	existing := mustAddTask(t, b, "Pre-existing")

	_, err := b.ImportExtraction(context.Background(), "doc", alice,
		[]ImportTask{{Title: "Imported"}}, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	p := loadProject(t, s)
	if len(p.Tasks) != 2 {
		t.Fatalf("tasks = %d, want existing plus imported", len(p.Tasks))
	}
	if p.Task(existing.ID) == nil {
		t.Error("existing task lost during import")
	}
}

func TestImportExtractionValidation(t *testing.T) {
	b, _ := newTestBoard(t)

	if _, err := b.ImportExtraction(context.Background(), "doc", alice, nil, nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty import: got %v, want validation error", err)
	}
	if _, err := b.ImportExtraction(context.Background(), "doc", alice,
		[]ImportTask{{Title: ""}}, nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("untitled task: got %v, want validation error", err)
	}
}
