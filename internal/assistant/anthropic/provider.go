// Package anthropic implements the drafting assistant on the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/insidedeveloper888/draftio/internal/assistant"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

const defaultModel = "claude-sonnet-4-5"

// Provider implements assistant.Provider against the Anthropic API.
type Provider struct {
	client  *anthropic.Client
	prompts *assistant.Prompts
	model   string
}

// NewProvider creates an Anthropic-backed drafting assistant.
func NewProvider(apiKey, model string, prompts *assistant.Prompts) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: &client, prompts: prompts, model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return "anthropic" }

// Draft asks the model to rewrite the spec documents per the user's input.
func (p *Provider) Draft(ctx context.Context, req *assistant.DraftRequest) (*assistant.DraftResult, error) {
	messages := historyToMessages(req.History)
	messages = append(messages, anthropic.NewUserMessage(
		anthropic.NewTextBlock(draftUserPrompt(req))))

	raw, err := p.complete(ctx, p.prompts.DraftSystem, messages)
	if err != nil {
		return nil, fmt.Errorf("draft request: %w", err)
	}

	var result assistant.DraftResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse draft reply: %w", err)
	}
	return &result, nil
}

// Extract asks the model to convert the plan into tasks and milestones.
func (p *Provider) Extract(ctx context.Context, planText string) (*assistant.Extraction, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(planText)),
	}

	raw, err := p.complete(ctx, p.prompts.ExtractSystem, messages)
	if err != nil {
		return nil, &assistant.ExtractionError{Cause: err}
	}

	var extraction assistant.Extraction
	if err := json.Unmarshal([]byte(stripFences(raw)), &extraction); err != nil {
		return nil, &assistant.ExtractionError{Cause: fmt.Errorf("parse extraction reply: %w", err)}
	}
	return &extraction, nil
}

func (p *Provider) complete(ctx context.Context, system string, messages []anthropic.MessageParam) (string, error) {
	reply, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 8192,
		Messages:  messages,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: system},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range reply.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty reply from model")
	}
	return sb.String(), nil
}

func historyToMessages(history []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == models.MessageRoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

func draftUserPrompt(req *assistant.DraftRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current project name: %s\n\n", req.ProjectName)
	fmt.Fprintf(&sb, "Current functional spec:\n%s\n\n", orPlaceholder(req.SpecFunctional))
	fmt.Fprintf(&sb, "Current technical spec:\n%s\n\n", orPlaceholder(req.SpecTechnical))
	fmt.Fprintf(&sb, "Current implementation plan:\n%s\n\n", orPlaceholder(req.SpecPlan))
	fmt.Fprintf(&sb, "User request:\n%s\n", req.Input)
	return sb.String()
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(empty)"
	}
	return s
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite instructions to reply with bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
