package projections

import (
	"context"

	childStore "therapro/internal/adapters/storage/child"
	therapistStore "therapro/internal/adapters/storage/therapist"
	"therapro/internal/application/snapshot"
)

// QueryRosterSnapshot exports the whole roster in display order.
func QueryRosterSnapshot(ctx context.Context, deps RosterDeps) (snapshot.Snapshot, error) {
	ts, err := deps.TherapistStore.List(ctx, therapistStore.ListFilter{})
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	cs, err := deps.ChildStore.List(ctx, childStore.ListFilter{})
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.FromRecords(ts, cs), nil
}
