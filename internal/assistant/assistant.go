// Package assistant defines the drafting-assistant contract: structured
// spec drafting from chat input and task/milestone extraction from plan
// text. Providers are slow and unreliable by assumption; callers must never
// block lease or board operations on them beyond the single awaiting
// request.
package assistant

import (
	"context"
	"fmt"
	"net/http"

	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

// DraftRequest carries the user's free-text input plus the conversation and
// current spec state the provider drafts against.
type DraftRequest struct {
	Input          string
	Attachment     *models.Attachment
	History        []models.Message
	ProjectName    string
	SpecFunctional string
	SpecTechnical  string
	SpecPlan       string
}

// DraftResult is the provider's structured reply. Empty spec fields mean
// "leave that document unchanged".
type DraftResult struct {
	ProjectName    string `json:"projectName"`
	SpecFunctional string `json:"specFunctional"`
	SpecTechnical  string `json:"specTechnical"`
	SpecPlan       string `json:"specPlan"`
	ChatResponse   string `json:"chatResponse"`
}

// ExtractedTask is a task candidate pulled from plan text. References are
// textual; ids are assigned at import time.
type ExtractedTask struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	EstimatedHours *float64 `json:"estimatedHours"`
	DependsOn      []string `json:"dependsOn"`
	MilestoneName  string   `json:"milestoneName"`
}

// ExtractedMilestone is a milestone candidate pulled from plan text.
type ExtractedMilestone struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Extraction is the provider's reply to an extract request.
type Extraction struct {
	Tasks        []ExtractedTask      `json:"tasks"`
	Milestones   []ExtractedMilestone `json:"milestones"`
	ChatResponse string               `json:"chatResponse"`
}

// Provider is a drafting assistant implementation.
type Provider interface {
	Name() string
	Draft(ctx context.Context, req *DraftRequest) (*DraftResult, error)
	Extract(ctx context.Context, planText string) (*Extraction, error)
}

// ExtractionError wraps a provider failure. User-facing; nothing is
// partially applied when extraction fails.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("drafting assistant failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

func (e *ExtractionError) StatusCode() int { return http.StatusBadGateway }
