package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/insidedeveloper888/draftio/internal/domain"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
)

// Claims carries the token claims the identity is built from. Display name
// and avatar come from the provider's user metadata block.
type Claims struct {
	jwt.RegisteredClaims
	Email        string `json:"email"`
	Role         string `json:"role"`
	UserMetadata struct {
		Name      string `json:"name"`
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
		Picture   string `json:"picture"`
	} `json:"user_metadata"`
}

// JWKSVerifier validates tokens against the identity provider's JWKS
// endpoint. Keys are cached and refreshed per the endpoint's HTTP cache
// headers.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWKSVerifier creates a verifier for the given JWKS endpoint.
func NewJWKSVerifier(jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return &JWKSVerifier{jwks: jwks, logger: logger}, nil
}

// Verify parses and validates a token and builds the caller's identity.
func (v *JWKSVerifier) Verify(tokenString string) (*models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	// Algorithm confusion guard: only asymmetric signatures accepted.
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("token uses unexpected algorithm", "algorithm", token.Method.Alg())
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	if claims.Role != "" && claims.Role != "authenticated" {
		v.logger.Debug("token has non-authenticated role", "role", claims.Role)
		return nil, domain.ErrUnauthorized
	}

	return claims.identity(), nil
}

// Close releases verifier resources. keyfunc v3 manages its own refresh
// lifecycle, so this only exists for shutdown symmetry.
func (v *JWKSVerifier) Close() error {
	return nil
}

func (c *Claims) identity() *models.Identity {
	name := c.UserMetadata.Name
	if name == "" {
		name = c.UserMetadata.FullName
	}
	if name == "" {
		name = c.Email
	}
	avatar := c.UserMetadata.AvatarURL
	if avatar == "" {
		avatar = c.UserMetadata.Picture
	}
	return &models.Identity{
		ID:          c.Subject,
		DisplayName: name,
		Email:       c.Email,
		PhotoURL:    avatar,
	}
}
