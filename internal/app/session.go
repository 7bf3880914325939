package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

// DefaultRefreshBuffer is the safety margin subtracted from the access
// token expiry: a token expiring within the buffer is refreshed before use.
const DefaultRefreshBuffer = 60 * time.Second

// Session owns the credential lifecycle: login, logout, and token refresh.
// Exactly one credential is active at a time; it is persisted on every
// change and replaced wholesale on refresh.
type Session struct {
	store  ports.StateStore
	auth   ports.AuthClient
	clock  ports.Clock
	buffer time.Duration
	logger log.Logger

	// refresh is single-flighted: many backends invalidate a refresh
	// token on first use, so concurrent refreshes must share one call
	// and one outcome.
	refresh singleflight.Group
}

// NewSession creates a session manager over the given store and auth client.
func NewSession(store ports.StateStore, auth ports.AuthClient, clock ports.Clock, buffer time.Duration, logger log.Logger) *Session {
	if buffer <= 0 {
		buffer = DefaultRefreshBuffer
	}
	return &Session{
		store:  store,
		auth:   auth,
		clock:  clock,
		buffer: buffer,
		logger: logger,
	}
}

// Credential returns the persisted credential; a zero credential means
// logged out.
func (s *Session) Credential(ctx context.Context) (domain.Credential, error) {
	return s.store.LoadCredential(ctx)
}

// Login authenticates with the remote service and persists the credential.
func (s *Session) Login(ctx context.Context, email, password string) (domain.Credential, error) {
	cred, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return domain.Credential{}, err
	}
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return domain.Credential{}, err
	}
	s.logger.Info("logged in", log.String("subject", cred.SubjectID))
	return cred, nil
}

// Register creates an account and persists its first credential.
func (s *Session) Register(ctx context.Context, email, password string) (domain.Credential, error) {
	cred, err := s.auth.Register(ctx, email, password)
	if err != nil {
		return domain.Credential{}, err
	}
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return domain.Credential{}, err
	}
	s.logger.Info("registered", log.String("subject", cred.SubjectID))
	return cred, nil
}

// Logout erases the persisted credential.
func (s *Session) Logout(ctx context.Context) error {
	return s.store.ClearCredential(ctx)
}

// Token returns an access token that is valid for at least the refresh
// buffer, refreshing first when needed. Returns domain.ErrNotAuthenticated
// when no credential is stored.
func (s *Session) Token(ctx context.Context) (string, error) {
	cred, err := s.store.LoadCredential(ctx)
	if err != nil {
		return "", err
	}
	if cred.IsZero() {
		return "", domain.ErrNotAuthenticated
	}
	if !cred.Expired(s.clock.Now(), s.buffer) {
		return cred.AccessToken, nil
	}
	return s.Refresh(ctx)
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the updated credential before returning. Concurrent callers
// share a single in-flight refresh and its outcome.
//
// On domain.ErrRefreshInvalid the credential is cleared immediately so the
// caller is forced to re-authenticate; on transient failure the credential
// is left untouched for a later retry.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	token, err, _ := s.refresh.Do("refresh", func() (any, error) {
		return s.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (s *Session) doRefresh(ctx context.Context) (string, error) {
	// Re-read inside the flight: another trigger may have replaced or
	// cleared the credential while we waited.
	cred, err := s.store.LoadCredential(ctx)
	if err != nil {
		return "", err
	}
	if cred.IsZero() {
		return "", domain.ErrNotAuthenticated
	}

	grant, err := s.auth.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshInvalid) {
			s.logger.Warn("refresh token rejected, clearing credential")
			if clearErr := s.store.ClearCredential(ctx); clearErr != nil {
				s.logger.Error("failed to clear credential", log.Err(clearErr))
			}
		}
		return "", err
	}

	cred.AccessToken = grant.AccessToken
	cred.ExpiresAt = grant.ExpiresAt
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return "", err
	}
	s.logger.Debug("credential refreshed", log.Time("expires_at", cred.ExpiresAt))
	return cred.AccessToken, nil
}
