package child

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyName  = errors.New("child name is required")
	ErrInvalidAge = errors.New("age must be a whole number of years, zero or more")
)

// Child is a client of the practice.
// AssignedTo is the only stored form of the child-to-therapist relation.
type Child struct {
	ID         string
	Name       string
	Age        *int // nil when unknown
	Diagnosis  string
	Notes      string // markdown
	Progress   string // free-form, e.g. "70%"; empty when not tracked
	AssignedTo string // therapist ID; empty when unassigned
	CreatedAt  time.Time
}

// ParseAge converts form input to an age.
// PRE: none
// POST: blank input yields nil; otherwise a non-negative integer or ErrInvalidAge
func ParseAge(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, ErrInvalidAge
	}
	return &n, nil
}

// Normalize trims surrounding whitespace from free-text fields.
func (c *Child) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Diagnosis = strings.TrimSpace(c.Diagnosis)
	c.Notes = strings.TrimSpace(c.Notes)
	c.Progress = strings.TrimSpace(c.Progress)
	c.AssignedTo = strings.TrimSpace(c.AssignedTo)
}

// Validate checks the required fields.
// PRE: Child struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Child) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Age != nil && *c.Age < 0 {
		return ErrInvalidAge
	}
	return nil
}

// IsAssigned reports whether the child has a therapist.
// INVARIANT: Child fields are not mutated
func (c *Child) IsAssigned() bool {
	return c.AssignedTo != ""
}

// IsAssignedTo reports whether the child is assigned to the given therapist.
// INVARIANT: Child fields are not mutated
func (c *Child) IsAssignedTo(therapistID string) bool {
	return therapistID != "" && c.AssignedTo == therapistID
}

// AssignTo records therapistID as the child's only therapist.
// POST: AssignedTo == therapistID
func (c *Child) AssignTo(therapistID string) {
	c.AssignedTo = therapistID
}

// Unassign clears the therapist.
// POST: AssignedTo is empty
func (c *Child) Unassign() {
	c.AssignedTo = ""
}

// AgeLabel renders the age for display.
func (c Child) AgeLabel() string {
	if c.Age == nil {
		return "unknown"
	}
	return strconv.Itoa(*c.Age) + " yrs"
}

// Initial returns the first letter of the name for avatar badges.
func (c Child) Initial() string {
	for _, r := range c.Name {
		return strings.ToUpper(string(r))
	}
	return "C"
}

// Years is a helper for building literal ages.
func Years(n int) *int {
	return &n
}
