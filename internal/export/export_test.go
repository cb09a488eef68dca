package export

import (
	"errors"
	"testing"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Project", "my-project"},
		{"  Spaced  Out  ", "spaced-out"},
		{"CRM / Billing v2!", "crm-billing-v2"},
		{"---", "untitled"},
		{"", "untitled"},
		{"Ünïcode Náme", "ünïcode-náme"},
		{"already-slugged", "already-slugged"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	p := &models.Project{
		Name:           "Demo App",
		SpecFunctional: "# Functional\n",
		SpecTechnical:  "# Technical\n",
		SpecPlan:       "# Plan\n",
	}

	tests := []struct {
		kind     string
		wantName string
		wantBody string
	}{
		{KindFunctional, "demo-app-functional.md", "# Functional\n"},
		{KindTechnical, "demo-app-technical.md", "# Technical\n"},
		{KindPlan, "demo-app-plan.md", "# Plan\n"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			artifact, err := Render(p, tt.kind)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if artifact.Filename != tt.wantName {
				t.Errorf("filename = %q, want %q", artifact.Filename, tt.wantName)
			}
			if string(artifact.Body) != tt.wantBody {
				t.Errorf("body = %q", artifact.Body)
			}
			if artifact.ContentType != "text/markdown; charset=utf-8" {
				t.Errorf("content type = %q", artifact.ContentType)
			}
		})
	}
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := Render(&models.Project{Name: "x"}, "pdf")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	artifact, err := Render(&models.Project{Name: "Empty"}, KindPlan)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(artifact.Body) != 0 {
		t.Errorf("body = %q, want empty", artifact.Body)
	}
}
