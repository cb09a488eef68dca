// Package export renders a project's spec documents to downloadable
// markdown artifacts. Pure read-side projection; nothing here touches the
// lease or the store.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

// Document kinds available for export.
const (
	KindFunctional = "functional"
	KindTechnical  = "technical"
	KindPlan       = "plan"
)

// Artifact is one exported document.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render produces the artifact for one document kind, named
// <project-slug>-<kind>.md.
func Render(p *models.Project, kind string) (*Artifact, error) {
	var body string
	switch kind {
	case KindFunctional:
		body = p.SpecFunctional
	case KindTechnical:
		body = p.SpecTechnical
	case KindPlan:
		body = p.SpecPlan
	default:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown export kind %q", kind)}
	}

	return &Artifact{
		Filename:    fmt.Sprintf("%s-%s.md", Slug(p.Name), kind),
		ContentType: "text/markdown; charset=utf-8",
		Body:        []byte(body),
	}, nil
}

// Slug lowercases the name and collapses every non-alphanumeric run to a
// single hyphen.
func Slug(name string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	out := strings.TrimSuffix(sb.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}
