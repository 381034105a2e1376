package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxUsernameLength = 64
)

// Role constants
const (
	RoleAdmin     = "admin"
	RoleTherapist = "therapist"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleTherapist}

// bcryptCost is the work factor for password hashes.
const bcryptCost = 12

// Domain errors
var (
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrUsernameTooLong  = errors.New("username cannot exceed 64 characters")
	ErrInvalidRole      = errors.New("role must be one of: admin, therapist")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrTherapistLinkSet = errors.New("only therapist accounts can be linked to a therapist record")
)

// Account holds a login identity. Accounts are provisioned by configuration,
// never through the UI.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	TherapistID  string // therapist record this login acts as; empty for admins
	CreatedAt    time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return ErrEmptyUsername
	}
	if len(a.Username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !IsValidRole(a.Role) {
		return ErrInvalidRole
	}
	if a.TherapistID != "" && a.Role != RoleTherapist {
		return ErrTherapistLinkSet
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is non-empty
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// DashboardPath returns the landing page for a role, or "/login" for an unknown role.
func DashboardPath(role string) string {
	switch role {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleTherapist:
		return "/therapist/dashboard"
	}
	return "/login"
}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
