package roster

import (
	"context"

	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// Store writes changes that span the therapist and child tables.
type Store interface {
	IsEmpty(ctx context.Context) (bool, error)
	Load(ctx context.Context, therapists []therapist.Therapist, children []child.Child, replace bool) error
	RemoveTherapist(ctx context.Context, id string) (int, error)
}
