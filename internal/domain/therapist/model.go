package therapist

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyName  = errors.New("therapist name is required")
	ErrEmptyEmail = errors.New("therapist email is required")
)

// Therapist is a practitioner children can be assigned to.
// Which children belong to a therapist is recorded on the child, not here.
type Therapist struct {
	ID             string
	Name           string
	Email          string
	Specialization string
	CreatedAt      time.Time
}

// Normalize trims surrounding whitespace from all free-text fields.
// POST: Name, Email, Specialization carry no leading/trailing spaces
func (t *Therapist) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Email = strings.TrimSpace(t.Email)
	t.Specialization = strings.TrimSpace(t.Specialization)
}

// Validate checks the required fields.
// PRE: Therapist struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Therapist) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(t.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}

// Initial returns the first letter of the name for avatar badges.
func (t Therapist) Initial() string {
	for _, r := range t.Name {
		return strings.ToUpper(string(r))
	}
	return "T"
}
