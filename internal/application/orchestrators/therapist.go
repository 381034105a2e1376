package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"therapro/internal/adapters/storage"
	"therapro/internal/domain/therapist"
)

// ErrTherapistNotFound is returned when an operation names an unknown therapist.
var ErrTherapistNotFound = errors.New("therapist not found")

// TherapistStoreForCreate defines the store interface needed by CreateTherapist.
type TherapistStoreForCreate interface {
	Save(ctx context.Context, t therapist.Therapist) error
}

// CreateTherapistInput carries form input for a new therapist.
type CreateTherapistInput struct {
	Name           string
	Email          string
	Specialization string
}

// CreateTherapistDeps holds dependencies for CreateTherapist.
type CreateTherapistDeps struct {
	TherapistStore TherapistStoreForCreate
}

// ExecuteCreateTherapist adds a therapist with a fresh id.
// PRE: none
// POST: On success the therapist is stored and listed first; on a validation
// error nothing is stored
func ExecuteCreateTherapist(ctx context.Context, input CreateTherapistInput, deps CreateTherapistDeps) (therapist.Therapist, error) {
	t := therapist.Therapist{
		ID:             uuid.New().String(),
		Name:           input.Name,
		Email:          input.Email,
		Specialization: input.Specialization,
		CreatedAt:      time.Now(),
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return therapist.Therapist{}, err
	}
	if err := deps.TherapistStore.Save(ctx, t); err != nil {
		return therapist.Therapist{}, fmt.Errorf("save therapist: %w", err)
	}
	slog.Info("roster_event", "event", "therapist_created", "therapist_id", t.ID)
	return t, nil
}

// TherapistRemover deletes a therapist together with their assignments.
type TherapistRemover interface {
	RemoveTherapist(ctx context.Context, id string) (int, error)
}

// RemoveTherapistDeps holds dependencies for RemoveTherapist.
type RemoveTherapistDeps struct {
	Roster TherapistRemover
}

// ExecuteRemoveTherapist deletes a therapist and unassigns their children.
// PRE: id names an existing therapist
// POST: the therapist is gone and no child is assigned to it; on error
// nothing changed
func ExecuteRemoveTherapist(ctx context.Context, id string, deps RemoveTherapistDeps) error {
	released, err := deps.Roster.RemoveTherapist(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrTherapistNotFound
	}
	if err != nil {
		return fmt.Errorf("remove therapist %s: %w", id, err)
	}
	slog.Info("roster_event", "event", "therapist_removed", "therapist_id", id, "children_released", released)
	return nil
}
