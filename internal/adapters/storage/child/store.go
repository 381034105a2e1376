package child

import (
	"context"

	domain "therapro/internal/domain/child"
)

// Store persists child records and their single therapist assignment.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Child, error)
	Save(ctx context.Context, value domain.Child) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Child, error)
	Count(ctx context.Context) (int, error)
	AssignMany(ctx context.Context, therapistID string, childIDs []string) error
	CountByTherapist(ctx context.Context) (map[string]int, error)
}

// ListFilter narrows List. AssignedTo and Unassigned are mutually exclusive;
// a zero Limit means no limit.
type ListFilter struct {
	Limit      int
	Offset     int
	AssignedTo string
	Unassigned bool
}
