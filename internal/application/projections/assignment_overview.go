package projections

import (
	"context"

	therapistStore "therapro/internal/adapters/storage/therapist"
)

// TherapistLoad is one bar of the children-per-therapist chart.
type TherapistLoad struct {
	TherapistID string
	Name        string
	Children    int
}

// AssignmentOverview aggregates assignments across the practice.
type AssignmentOverview struct {
	Loads      []TherapistLoad // therapist list order
	Unassigned int
	Max        int // largest Children value, for scaling bars
}

// Percent scales n against the busiest therapist for bar widths.
func (o AssignmentOverview) Percent(n int) int {
	if o.Max == 0 {
		return 0
	}
	return n * 100 / o.Max
}

// QueryAssignmentOverview counts children per therapist.
// PRE: none
// POST: one load per therapist (zero included); sum of loads + Unassigned
// equals the number of children
// INVARIANT: computed from the current store content on every call
func QueryAssignmentOverview(ctx context.Context, deps RosterDeps) (AssignmentOverview, error) {
	therapists, err := deps.TherapistStore.List(ctx, therapistStore.ListFilter{})
	if err != nil {
		return AssignmentOverview{}, err
	}
	counts, err := deps.ChildStore.CountByTherapist(ctx)
	if err != nil {
		return AssignmentOverview{}, err
	}

	out := AssignmentOverview{Loads: make([]TherapistLoad, len(therapists)), Unassigned: counts[""]}
	for i, t := range therapists {
		n := counts[t.ID]
		out.Loads[i] = TherapistLoad{TherapistID: t.ID, Name: t.Name, Children: n}
		if n > out.Max {
			out.Max = n
		}
	}
	return out, nil
}
