package board

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

// ImportMilestone is a milestone extracted from the plan text, identified
// only by name until the import assigns an id.
type ImportMilestone struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TargetDate  *int64 `json:"targetDate"`
}

// ImportTask is a task extracted from the plan text. Dependencies and the
// milestone reference are textual (titles), resolved against freshly
// assigned ids during import.
type ImportTask struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	EstimatedHours *float64 `json:"estimatedHours"`
	DependsOn      []string `json:"dependsOn"`
	MilestoneName  string   `json:"milestoneName"`
}

// ImportResult reports what a bulk import created.
type ImportResult struct {
	Tasks      []models.Task      `json:"tasks"`
	Milestones []models.Milestone `json:"milestones"`
}

// ImportExtraction bulk-creates the selected milestones and tasks in one
// atomic update, merged with the existing collections. Milestones are
// created first so task references can resolve against the name-to-id map;
// textual dependsOn entries resolve against imported task titles. Any
// reference that resolves to nothing is dropped silently rather than left
// dangling as a string.
func (b *Board) ImportExtraction(ctx context.Context, projectID string, who *models.Identity, tasks []ImportTask, milestones []ImportMilestone) (*ImportResult, error) {
	if len(tasks) == 0 && len(milestones) == 0 {
		return nil, &domain.ValidationError{Message: "nothing selected to import"}
	}
	for _, t := range tasks {
		if t.Title == "" {
			return nil, &domain.ValidationError{Message: "imported task is missing a title"}
		}
	}

	var result ImportResult
	err := b.update(ctx, projectID, func(p *models.Project) error {
		nowMillis := b.nowMillis()

		milestoneIDs := make(map[string]string, len(milestones))
		newMilestones := make([]models.Milestone, 0, len(milestones))
		for i, m := range milestones {
			if m.Name == "" {
				return &domain.ValidationError{Message: "imported milestone is missing a name"}
			}
			ms := models.Milestone{
				ID:          uuid.NewString(),
				Name:        m.Name,
				Description: m.Description,
				TargetDate:  m.TargetDate,
				OrderIndex:  len(p.Milestones) + i,
				CreatedAt:   nowMillis,
				UpdatedAt:   nowMillis,
			}
			milestoneIDs[m.Name] = ms.ID
			newMilestones = append(newMilestones, ms)
		}

		taskIDs := make(map[string]string, len(tasks))
		newTasks := make([]models.Task, 0, len(tasks))
		for i, t := range tasks {
			priority := t.Priority
			if !models.ValidTaskPriority(priority) {
				priority = models.TaskPriorityMedium
			}
			task := models.Task{
				ID:             uuid.NewString(),
				Title:          t.Title,
				Description:    t.Description,
				Status:         models.TaskStatusTodo,
				Priority:       priority,
				AssigneeIDs:    []string{},
				EstimatedHours: t.EstimatedHours,
				DependsOn:      []string{},
				OrderIndex:     len(p.Tasks) + i,
				CreatedBy:      who.ID,
				CreatedAt:      nowMillis,
				UpdatedAt:      nowMillis,
			}
			taskIDs[t.Title] = task.ID
			newTasks = append(newTasks, task)
		}

		// Second pass: resolve textual references now that every imported
		// entity has an id. Unresolvable titles are dropped.
		for i, t := range tasks {
			for _, dep := range t.DependsOn {
				id, ok := taskIDs[dep]
				if !ok {
					b.logger.Debug("dropping unresolvable dependency",
						"project_id", projectID, "task", t.Title, "depends_on", dep)
					continue
				}
				if id == newTasks[i].ID {
					continue
				}
				newTasks[i].DependsOn = append(newTasks[i].DependsOn, id)
			}
			if t.MilestoneName != "" {
				if id, ok := milestoneIDs[t.MilestoneName]; ok {
					newTasks[i].MilestoneID = id
				}
			}
		}

		p.Milestones = append(p.Milestones, newMilestones...)
		p.Tasks = append(p.Tasks, newTasks...)
		bump(p, nowMillis)

		result = ImportResult{Tasks: newTasks, Milestones: newMilestones}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import extraction: %w", err)
	}

	b.logger.Info("extraction imported",
		"project_id", projectID,
		"tasks", len(result.Tasks),
		"milestones", len(result.Milestones))
	return &result, nil
}
