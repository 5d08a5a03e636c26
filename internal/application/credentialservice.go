package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Credential keys used with driven.CredentialStore.
const (
	CredentialServiceGitHub = "github"
	CredentialKeyToken      = "token"
	CredentialKeyUsername   = "username"
)

// Token submission errors.
var (
	ErrEmptyToken   = errors.New("token must not be empty")
	ErrInvalidToken = errors.New("github rejected the token")
)

// TokenValidator checks a token against GitHub and returns its login.
type TokenValidator func(ctx context.Context, token string) (string, error)

// ClientFactory builds a GitHub client for a validated token.
type ClientFactory func(token, username string) driven.GitHubAPI

// CredentialStatus describes the configured GitHub identity.
type CredentialStatus struct {
	Configured bool
	Username   string
}

// CredentialService validates, stores and hot-swaps GitHub credentials.
type CredentialService struct {
	store     driven.CredentialStore
	provider  *GitHubClientProvider
	validate  TokenValidator
	newClient ClientFactory
}

// NewCredentialService creates a CredentialService.
func NewCredentialService(store driven.CredentialStore, provider *GitHubClientProvider, validate TokenValidator, newClient ClientFactory) *CredentialService {
	return &CredentialService{
		store:     store,
		provider:  provider,
		validate:  validate,
		newClient: newClient,
	}
}

// SetGitHubToken validates token, stores it with its login, and swaps a new
// client into the provider. It returns the login.
func (s *CredentialService) SetGitHubToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	login, err := s.validate(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if err := s.store.Set(ctx, CredentialServiceGitHub, CredentialKeyToken, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	if err := s.store.Set(ctx, CredentialServiceGitHub, CredentialKeyUsername, login); err != nil {
		return "", fmt.Errorf("store username: %w", err)
	}

	s.provider.Replace(s.newClient(token, login), login)
	slog.Info("github credentials updated", "username", login)
	return login, nil
}

// ClearGitHubToken deletes the stored credentials and drops the client.
func (s *CredentialService) ClearGitHubToken(ctx context.Context) error {
	if err := s.store.Delete(ctx, CredentialServiceGitHub, CredentialKeyToken); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if err := s.store.Delete(ctx, CredentialServiceGitHub, CredentialKeyUsername); err != nil {
		return fmt.Errorf("delete username: %w", err)
	}

	s.provider.Replace(nil, "")
	slog.Info("github credentials cleared")
	return nil
}

// Status reports whether a client is configured and for whom.
func (s *CredentialService) Status() CredentialStatus {
	return CredentialStatus{
		Configured: s.provider.HasClient(),
		Username:   s.provider.Username(),
	}
}

// ResolveGitHubCredentials picks the token and username to start with.
// Stored credentials take priority over the environment. Store errors such as
// a missing encryption key fall back to the environment.
func ResolveGitHubCredentials(ctx context.Context, store driven.CredentialStore, envToken, envUsername string) (token, username string) {
	token, username = envToken, envUsername
	if store == nil {
		return token, username
	}

	if stored, err := store.Get(ctx, CredentialServiceGitHub, CredentialKeyToken); err == nil && stored != "" {
		token = stored
	} else if err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		slog.Warn("read stored token failed", "error", err)
	}

	if stored, err := store.Get(ctx, CredentialServiceGitHub, CredentialKeyUsername); err == nil && stored != "" {
		username = stored
	}

	return token, username
}
