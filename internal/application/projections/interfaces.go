package projections

import (
	"context"

	childStore "therapro/internal/adapters/storage/child"
	therapistStore "therapro/internal/adapters/storage/therapist"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// TherapistStore defines the therapist store interface needed by projections.
type TherapistStore interface {
	GetByID(ctx context.Context, id string) (therapist.Therapist, error)
	List(ctx context.Context, filter therapistStore.ListFilter) ([]therapist.Therapist, error)
}

// ChildStore defines the child store interface needed by projections.
type ChildStore interface {
	GetByID(ctx context.Context, id string) (child.Child, error)
	List(ctx context.Context, filter childStore.ListFilter) ([]child.Child, error)
	CountByTherapist(ctx context.Context) (map[string]int, error)
}

// RosterDeps holds the stores every roster projection reads from.
type RosterDeps struct {
	TherapistStore TherapistStore
	ChildStore     ChildStore
}
