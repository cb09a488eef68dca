// Package lorem is a mock drafting assistant that generates lorem ipsum
// content. Used for development and tests without real API keys.
package lorem

import (
	"context"
	"fmt"
	"strings"

	loremgen "github.com/bozaro/golorem"

	"github.com/insidedeveloper888/draftio/internal/assistant"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

// Provider implements assistant.Provider with generated filler text.
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a lorem ipsum drafting assistant.
func NewProvider() *Provider {
	return &Provider{generator: loremgen.New()}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "lorem" }

// Draft fills every spec document with generated prose.
func (p *Provider) Draft(ctx context.Context, req *assistant.DraftRequest) (*assistant.DraftResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := req.ProjectName
	if name == "" || name == models.DefaultProjectName {
		name = strings.Title(p.generator.Sentence(2, 3))
	}

	return &assistant.DraftResult{
		ProjectName:    name,
		SpecFunctional: p.document("Functional Spec"),
		SpecTechnical:  p.document("Technical Spec"),
		SpecPlan:       p.document("Implementation Plan"),
		ChatResponse:   p.generator.Sentence(8, 15),
	}, nil
}

// Extract fabricates a small consistent board: three milestones and six
// tasks with resolvable dependency titles.
func (p *Provider) Extract(ctx context.Context, planText string) (*assistant.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(planText) == "" {
		return nil, &assistant.ExtractionError{Cause: fmt.Errorf("plan is empty")}
	}

	milestones := []assistant.ExtractedMilestone{
		{Name: "Foundation", Description: p.generator.Sentence(5, 10)},
		{Name: "Core Features", Description: p.generator.Sentence(5, 10)},
		{Name: "Launch", Description: p.generator.Sentence(5, 10)},
	}

	priorities := []string{
		models.TaskPriorityHigh, models.TaskPriorityMedium, models.TaskPriorityLow,
	}
	tasks := make([]assistant.ExtractedTask, 0, 6)
	for i := 0; i < 6; i++ {
		hours := float64(2 + i*2)
		task := assistant.ExtractedTask{
			Title:          fmt.Sprintf("Task %d: %s", i+1, p.generator.Sentence(3, 6)),
			Description:    p.generator.Paragraph(1, 2),
			Priority:       priorities[i%len(priorities)],
			EstimatedHours: &hours,
			MilestoneName:  milestones[i/2].Name,
		}
		if i > 0 {
			task.DependsOn = []string{tasks[i-1].Title}
		}
		tasks = append(tasks, task)
	}

	return &assistant.Extraction{
		Tasks:        tasks,
		Milestones:   milestones,
		ChatResponse: p.generator.Sentence(8, 15),
	}, nil
}

func (p *Provider) document(title string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&sb, "## %s\n\n", strings.Title(p.generator.Sentence(2, 4)))
		sb.WriteString(p.generator.Paragraph(2, 4))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}
