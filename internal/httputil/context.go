package httputil

import (
	"context"
	"net/http"

	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity attaches the authenticated identity to the request context.
func WithIdentity(r *http.Request, who *models.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityKey, who)
	return r.WithContext(ctx)
}

// GetIdentity retrieves the authenticated identity, or nil when the request
// was not authenticated.
func GetIdentity(r *http.Request) *models.Identity {
	who, _ := r.Context().Value(identityKey).(*models.Identity)
	return who
}
