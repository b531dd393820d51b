package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned when registering a username that is taken
	ErrUserExists = errors.New("username already exists")
	// ErrUserNotFound is returned when a username has no account
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when a password check fails
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// User represents a registered account. Accounts own exactly one upload
// directory and one output directory, both derived from the username.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository is the port for user persistence
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, username, passwordHash string) (*User, error)
	Count(ctx context.Context) (int, error)
}

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
