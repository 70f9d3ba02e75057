// Package user provides marketplace account management.
package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/id"
)

const (
	// MinPasswordLength is the minimum accepted password size in bytes.
	MinPasswordLength = 8
	// MaxPasswordLength matches the bcrypt input limit.
	MaxPasswordLength = 72
	// MaxBioLength caps the free-form profile bio.
	MaxBioLength = 500
	// MaxLocationLength caps the free-form profile location.
	MaxLocationLength = 120
)

var (
	// ErrInvalidEmail indicates a missing or malformed email address.
	ErrInvalidEmail = apperrors.New(apperrors.CodeUserEmailInvalid, "email address is invalid")
	// ErrInvalidUsername indicates a username outside the accepted format.
	ErrInvalidUsername = apperrors.New(apperrors.CodeUserUsernameInvalid, "username must be 3-32 lowercase alphanumeric, dot, dash, or underscore characters")
	// ErrInvalidPassword indicates a password outside the accepted length.
	ErrInvalidPassword = apperrors.New(apperrors.CodeUserPasswordInvalid, "password must be between 8 and 72 characters")
	// ErrPasswordMismatch indicates the confirmation did not match.
	ErrPasswordMismatch = apperrors.New(apperrors.CodeUserPasswordMismatch, "password confirmation does not match")
	// ErrBioTooLong indicates a bio above the length cap.
	ErrBioTooLong = apperrors.New(apperrors.CodeUserBioTooLong, "bio must be at most 500 characters")
	// ErrLocationTooLong indicates a location above the length cap.
	ErrLocationTooLong = apperrors.New(apperrors.CodeUserLocationTooLong, "location must be at most 120 characters")

	usernamePattern = regexp.MustCompile(`^[a-z0-9_.\-]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// User represents a marketplace account. Any user may act as buyer and
// seller; roles are per-request, not per-account.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Bio          string
	Location     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserInput describes the data needed to register an account.
type CreateUserInput struct {
	Email           string
	Username        string
	Password        string
	PasswordConfirm string
	Bio             string
	Location        string
}

// UpdateProfileInput describes the mutable profile fields. Email is
// immutable once registered.
type UpdateProfileInput struct {
	Username string
	Bio      string
	Location string
}

// ValidateEmail enforces canonical email constraints.
func ValidateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateUsername enforces canonical username constraints.
func ValidateUsername(s string) error {
	if !usernamePattern.MatchString(s) {
		return ErrInvalidUsername
	}
	return nil
}

// CreateUser builds a durable account record from untrusted registration
// input. The password is hashed here so callers never hold both the
// plaintext and the stored record.
func CreateUser(input CreateUserInput, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(normalized.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:           userID,
		Email:        normalized.Email,
		Username:     normalized.Username,
		PasswordHash: string(hash),
		Bio:          normalized.Bio,
		Location:     normalized.Location,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// NormalizeCreateUserInput trims and normalizes input before validation.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	input.Bio = strings.TrimSpace(input.Bio)
	input.Location = strings.TrimSpace(input.Location)

	if err := ValidateEmail(input.Email); err != nil {
		return CreateUserInput{}, err
	}
	if err := ValidateUsername(input.Username); err != nil {
		return CreateUserInput{}, err
	}
	if len(input.Password) < MinPasswordLength || len(input.Password) > MaxPasswordLength {
		return CreateUserInput{}, ErrInvalidPassword
	}
	if input.Password != input.PasswordConfirm {
		return CreateUserInput{}, ErrPasswordMismatch
	}
	if len(input.Bio) > MaxBioLength {
		return CreateUserInput{}, ErrBioTooLong
	}
	if len(input.Location) > MaxLocationLength {
		return CreateUserInput{}, ErrLocationTooLong
	}
	return input, nil
}

// ApplyProfileUpdate validates the update and returns the modified user.
func ApplyProfileUpdate(current User, input UpdateProfileInput, now func() time.Time) (User, error) {
	if now == nil {
		now = time.Now
	}

	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	input.Bio = strings.TrimSpace(input.Bio)
	input.Location = strings.TrimSpace(input.Location)

	if input.Username != "" {
		if err := ValidateUsername(input.Username); err != nil {
			return User{}, err
		}
		current.Username = input.Username
	}
	if len(input.Bio) > MaxBioLength {
		return User{}, ErrBioTooLong
	}
	if len(input.Location) > MaxLocationLength {
		return User{}, ErrLocationTooLong
	}
	current.Bio = input.Bio
	current.Location = input.Location
	current.UpdatedAt = now().UTC()
	return current, nil
}

// CheckPassword reports whether candidate matches the stored hash.
func CheckPassword(passwordHash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(candidate)) == nil
}
