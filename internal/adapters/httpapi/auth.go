package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

const (
	registerEndpoint = "/auth/register"
	loginEndpoint    = "/auth/login"
	refreshEndpoint  = "/auth/refresh"
)

// AuthClient implements ports.AuthClient against the remote auth endpoints.
type AuthClient struct {
	client client
	clock  ports.Clock
	logger log.Logger
}

// NewAuthClient creates an HTTP auth client.
func NewAuthClient(httpClient ports.HTTPClient, baseURL, clientID string, clock ports.Clock, logger log.Logger) *AuthClient {
	return &AuthClient{
		client: client{http: httpClient, baseURL: baseURL, clientID: clientID},
		clock:  clock,
		logger: logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	TokenType   string `json:"tokenType"`
}

// Login exchanges email/password for a fresh credential.
func (a *AuthClient) Login(ctx context.Context, email, password string) (domain.Credential, error) {
	var tok tokenResponse
	status, err := a.client.postJSON(ctx, "login", loginEndpoint, credentialsRequest{Email: email, Password: password}, &tok)
	if err != nil {
		return domain.Credential{}, err
	}
	switch {
	case status == http.StatusOK:
		return a.credential(tok), nil
	case status == http.StatusUnauthorized:
		return domain.Credential{}, domain.ErrInvalidLogin
	default:
		return domain.Credential{}, &domain.TransportError{Op: "login", Status: status}
	}
}

// Register creates an account and returns its first credential.
func (a *AuthClient) Register(ctx context.Context, email, password string) (domain.Credential, error) {
	var tok tokenResponse
	status, err := a.client.postJSON(ctx, "register", registerEndpoint, credentialsRequest{Email: email, Password: password}, &tok)
	if err != nil {
		return domain.Credential{}, err
	}
	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		return a.credential(tok), nil
	case status == http.StatusConflict:
		return domain.Credential{}, domain.ErrEmailTaken
	default:
		return domain.Credential{}, &domain.TransportError{Op: "register", Status: status}
	}
}

// Refresh exchanges the refresh token for a new access token. A 401 here
// means the refresh token itself is dead: the caller must clear the stored
// credential and force re-authentication.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (ports.RefreshGrant, error) {
	var grant refreshResponse
	status, err := a.client.postJSON(ctx, "refresh", refreshEndpoint, refreshRequest{RefreshToken: refreshToken}, &grant)
	if err != nil {
		return ports.RefreshGrant{}, err
	}
	switch {
	case status == http.StatusOK:
		a.logger.Debug("access token refreshed", log.Int64("expires_in", grant.ExpiresIn))
		return ports.RefreshGrant{
			AccessToken: grant.AccessToken,
			ExpiresAt:   a.clock.Now().Add(time.Duration(grant.ExpiresIn) * time.Second),
		}, nil
	case status == http.StatusUnauthorized:
		return ports.RefreshGrant{}, domain.ErrRefreshInvalid
	default:
		return ports.RefreshGrant{}, &domain.TransportError{Op: "refresh", Status: status}
	}
}

func (a *AuthClient) credential(tok tokenResponse) domain.Credential {
	return domain.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    a.clock.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		SubjectID:    tok.UserID,
	}
}
