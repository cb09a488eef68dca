// Package auth verifies bearer tokens from the identity provider and turns
// them into the identity tuple the core operates on. Credentials are never
// persisted, only the resulting id, display name, email and avatar.
package auth

import "github.com/insidedeveloper888/draftio/internal/domain/models"

// Verifier validates a bearer token and yields the caller's identity.
type Verifier interface {
	Verify(token string) (*models.Identity, error)
	Close() error
}
