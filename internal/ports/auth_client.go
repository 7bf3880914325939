package ports

import (
	"context"
	"time"

	"github.com/likelabs/likeship/internal/domain"
)

// RefreshGrant is the result of a successful token refresh: a new access
// token and expiry. The refresh token itself is not rotated by the remote
// service, so the caller keeps the one it already holds.
type RefreshGrant struct {
	AccessToken string
	ExpiresAt   time.Time
}

// AuthClient talks to the remote authentication endpoints.
//
// Error contract:
//   - Login returns domain.ErrInvalidLogin when the remote rejects the
//     email/password pair.
//   - Register returns domain.ErrEmailTaken on a conflict.
//   - Refresh returns domain.ErrRefreshInvalid when the remote rejects the
//     refresh token; the caller must clear the stored credential.
//   - All three return *domain.TransportError for network failures,
//     timeouts, 429, and 5xx responses.
type AuthClient interface {
	// Login exchanges email/password for a fresh credential.
	Login(ctx context.Context, email, password string) (domain.Credential, error)

	// Register creates an account and returns its first credential.
	Register(ctx context.Context, email, password string) (domain.Credential, error)

	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (RefreshGrant, error)
}
