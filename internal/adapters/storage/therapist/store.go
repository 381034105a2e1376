package therapist

import (
	"context"

	domain "therapro/internal/domain/therapist"
)

// Store persists therapist records.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Therapist, error)
	Save(ctx context.Context, value domain.Therapist) error
	List(ctx context.Context, filter ListFilter) ([]domain.Therapist, error)
	Count(ctx context.Context) (int, error)
}

// ListFilter carries paging parameters for List. A zero Limit means no limit.
type ListFilter struct {
	Limit  int
	Offset int
}
