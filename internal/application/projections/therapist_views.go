package projections

import (
	"context"
	"errors"

	"therapro/internal/adapters/storage"
	childStore "therapro/internal/adapters/storage/child"
	"therapro/internal/domain/activity"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// ErrNotAssigned hides children that belong to another therapist.
var ErrNotAssigned = errors.New("child is not assigned to this therapist")

// TherapistDashboard is the landing page of a therapist login.
type TherapistDashboard struct {
	Therapist     therapist.Therapist // zero when the login has no linked record
	Linked        bool
	Children      []child.Child
	ActivityCount int
	TopRewards    []activity.Reward
}

// TherapistDashboardDeps holds dependencies for the therapist dashboard.
type TherapistDashboardDeps struct {
	Roster  RosterDeps
	Catalog activity.Catalog
}

// topRewardCount is how many rewards the dashboard previews.
const topRewardCount = 3

// QueryTherapistDashboard builds the therapist landing page.
// PRE: none; an empty or stale therapistID yields an unlinked dashboard
// POST: Children are exactly those assigned to therapistID
func QueryTherapistDashboard(ctx context.Context, therapistID string, deps TherapistDashboardDeps) (TherapistDashboard, error) {
	out := TherapistDashboard{ActivityCount: len(deps.Catalog.Activities)}
	rewards := deps.Catalog.Rewards
	if len(rewards) > topRewardCount {
		rewards = rewards[:topRewardCount]
	}
	out.TopRewards = rewards

	children, linked, err := assignedChildren(ctx, therapistID, deps.Roster)
	if err != nil {
		return TherapistDashboard{}, err
	}
	if !linked {
		return out, nil
	}
	out.Linked = true
	out.Therapist, err = deps.Roster.TherapistStore.GetByID(ctx, therapistID)
	if err != nil {
		return TherapistDashboard{}, err
	}
	out.Children = children
	return out, nil
}

// QueryAssignedChildren lists the children of one therapist, newest first.
// An unlinked or removed therapist sees an empty list.
func QueryAssignedChildren(ctx context.Context, therapistID string, deps RosterDeps) ([]child.Child, error) {
	children, _, err := assignedChildren(ctx, therapistID, deps)
	return children, err
}

// QueryAssignedChild returns one child if, and only if, it is assigned to therapistID.
// POST: ErrNotAssigned for unknown ids as well, so ids of other therapists'
// children are not confirmed
func QueryAssignedChild(ctx context.Context, therapistID, childID string, deps RosterDeps) (child.Child, error) {
	c, err := deps.ChildStore.GetByID(ctx, childID)
	if errors.Is(err, storage.ErrNotFound) {
		return child.Child{}, ErrNotAssigned
	}
	if err != nil {
		return child.Child{}, err
	}
	if !c.IsAssignedTo(therapistID) {
		return child.Child{}, ErrNotAssigned
	}
	return c, nil
}

func assignedChildren(ctx context.Context, therapistID string, deps RosterDeps) ([]child.Child, bool, error) {
	if therapistID == "" {
		return nil, false, nil
	}
	if _, err := deps.TherapistStore.GetByID(ctx, therapistID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	children, err := deps.ChildStore.List(ctx, childStore.ListFilter{AssignedTo: therapistID})
	return children, true, err
}
