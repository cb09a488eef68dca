package assistant

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.yaml
var promptFiles embed.FS

// Prompts holds the system prompts shared by every provider.
type Prompts struct {
	DraftSystem   string `yaml:"draft_system"`
	ExtractSystem string `yaml:"extract_system"`
}

// LoadPrompts parses the embedded prompt configuration.
func LoadPrompts() (*Prompts, error) {
	data, err := promptFiles.ReadFile("prompts/drafting.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}

	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompt config: %w", err)
	}
	if p.DraftSystem == "" || p.ExtractSystem == "" {
		return nil, fmt.Errorf("prompt config is missing required prompts")
	}
	return &p, nil
}
