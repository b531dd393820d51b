package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vzahanych/vision-portal/internal/logger"
)

var (
	// ErrMissingCredentials is returned when username or password is empty
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrPasswordMismatch is returned when registration confirmation differs
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Authenticator combines the user repository with session issuance
type Authenticator struct {
	repo     Repository
	sessions *SessionManager
	logger   *logger.Logger
}

// NewAuthenticator creates an authenticator over the given repository
func NewAuthenticator(repo Repository, sessions *SessionManager, log *logger.Logger) *Authenticator {
	return &Authenticator{
		repo:     repo,
		sessions: sessions,
		logger:   log,
	}
}

// Register validates and creates a new account
func (a *Authenticator) Register(ctx context.Context, username, password, confirm string) (*User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.repo.Insert(ctx, username, hash)
	if err != nil {
		return nil, err
	}

	a.logger.Info("User registered", "username", username)
	return user, nil
}

// Login checks credentials and issues a session
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := a.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	sess := a.sessions.Create(user.Username)
	a.logger.Info("User logged in", "username", username)
	return sess, nil
}

// Logout invalidates a session token
func (a *Authenticator) Logout(token string) {
	a.sessions.Delete(token)
}

// Verify resolves a session token to a username
func (a *Authenticator) Verify(token string) (string, bool) {
	return a.sessions.Verify(token)
}

// Bootstrap seeds an initial account when the user table is empty. The
// original deployment shipped with a built-in admin user; this makes that
// an explicit, configurable step.
func (a *Authenticator) Bootstrap(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	count, err := a.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}
	if _, err := a.repo.Insert(ctx, username, hash); err != nil {
		return fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	a.logger.Info("Bootstrap user created", "username", username)
	return nil
}
