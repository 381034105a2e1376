package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"therapro/internal/adapters/storage"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// ErrChildNotFound is returned when an operation names an unknown child.
var ErrChildNotFound = errors.New("child not found")

// TherapistLookup resolves a therapist by id.
type TherapistLookup interface {
	GetByID(ctx context.Context, id string) (therapist.Therapist, error)
}

// ChildStoreForCreate defines the store interface needed by CreateChild.
type ChildStoreForCreate interface {
	Save(ctx context.Context, c child.Child) error
}

// CreateChildInput carries form input for a new child. Age is the raw form value.
type CreateChildInput struct {
	Name       string
	Age        string
	Diagnosis  string
	Notes      string
	Progress   string
	AssignedTo string
}

// CreateChildDeps holds dependencies for CreateChild.
type CreateChildDeps struct {
	ChildStore     ChildStoreForCreate
	TherapistStore TherapistLookup
}

// ExecuteCreateChild adds a child with a fresh id, optionally already assigned.
// PRE: none
// POST: On success the child is stored and listed first; on any error nothing is stored
func ExecuteCreateChild(ctx context.Context, input CreateChildInput, deps CreateChildDeps) (child.Child, error) {
	age, err := child.ParseAge(input.Age)
	if err != nil {
		return child.Child{}, err
	}
	c := child.Child{
		ID:         uuid.New().String(),
		Name:       input.Name,
		Age:        age,
		Diagnosis:  input.Diagnosis,
		Notes:      input.Notes,
		Progress:   input.Progress,
		AssignedTo: input.AssignedTo,
		CreatedAt:  time.Now(),
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return child.Child{}, err
	}
	if c.IsAssigned() {
		if err := requireTherapist(ctx, deps.TherapistStore, c.AssignedTo); err != nil {
			return child.Child{}, err
		}
	}
	if err := deps.ChildStore.Save(ctx, c); err != nil {
		return child.Child{}, fmt.Errorf("save child: %w", err)
	}
	slog.Info("roster_event", "event", "child_created", "child_id", c.ID, "assigned_to", c.AssignedTo)
	return c, nil
}

// ChildStoreForRemove defines the store interface needed by RemoveChild.
type ChildStoreForRemove interface {
	GetByID(ctx context.Context, id string) (child.Child, error)
	Delete(ctx context.Context, id string) error
}

// RemoveChildDeps holds dependencies for RemoveChild.
type RemoveChildDeps struct {
	ChildStore ChildStoreForRemove
}

// ExecuteRemoveChild deletes a child. Since the assignment lives on the child,
// no therapist needs updating.
// PRE: id names an existing child
// POST: the child is gone
func ExecuteRemoveChild(ctx context.Context, id string, deps RemoveChildDeps) error {
	if _, err := deps.ChildStore.GetByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrChildNotFound
		}
		return err
	}
	if err := deps.ChildStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	slog.Info("roster_event", "event", "child_removed", "child_id", id)
	return nil
}

func requireTherapist(ctx context.Context, store TherapistLookup, id string) error {
	if _, err := store.GetByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrTherapistNotFound
		}
		return err
	}
	return nil
}
