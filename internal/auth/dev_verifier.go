package auth

import (
	"fmt"
	"strings"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

// DevVerifier accepts unsigned "dev:<id>:<display name>" tokens. Development
// only; the server refuses to construct it outside the dev environment.
type DevVerifier struct{}

// NewDevVerifier creates the development verifier.
func NewDevVerifier(environment string) (*DevVerifier, error) {
	if environment != "dev" {
		return nil, fmt.Errorf("dev verifier is not allowed in %q", environment)
	}
	return &DevVerifier{}, nil
}

// Verify parses a dev token into an identity.
func (v *DevVerifier) Verify(token string) (*models.Identity, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) < 2 || parts[0] != "dev" || parts[1] == "" {
		return nil, domain.ErrUnauthorized
	}
	name := parts[1]
	if len(parts) == 3 && parts[2] != "" {
		name = parts[2]
	}
	return &models.Identity{ID: parts[1], DisplayName: name}, nil
}

// Close is a no-op.
func (v *DevVerifier) Close() error { return nil }
