package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"therapro/internal/adapters/storage"
	"therapro/internal/application/snapshot"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// RosterLoader writes whole rosters atomically.
type RosterLoader interface {
	IsEmpty(ctx context.Context) (bool, error)
	Load(ctx context.Context, therapists []therapist.Therapist, children []child.Child, replace bool) error
}

// RosterDeps holds dependencies for SeedRoster and ImportRoster.
type RosterDeps struct {
	Roster RosterLoader
	Now    func() time.Time
}

func (d RosterDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ExecuteSeedRoster loads src only when no therapist or child exists yet.
// Returns whether anything was written.
// PRE: src has passed snapshot validation
// POST: a non-empty roster is never modified
func ExecuteSeedRoster(ctx context.Context, src snapshot.Snapshot, deps RosterDeps) (bool, error) {
	if err := src.Validate(); err != nil {
		return false, err
	}
	empty, err := deps.Roster.IsEmpty(ctx)
	if err != nil {
		return false, fmt.Errorf("check roster: %w", err)
	}
	if !empty {
		return false, nil
	}
	ts, cs := src.Records(deps.now())
	if err := deps.Roster.Load(ctx, ts, cs, false); err != nil {
		return false, fmt.Errorf("seed roster: %w", err)
	}
	slog.Info("roster_event", "event", "roster_seeded", "therapists", len(ts), "children", len(cs))
	return true, nil
}

// ImportRosterInput carries a decoded snapshot and the write mode.
type ImportRosterInput struct {
	Snapshot snapshot.Snapshot
	Replace  bool
}

// ImportRosterResult reports what was written.
type ImportRosterResult struct {
	Therapists int
	Children   int
}

// ExecuteImportRoster writes a snapshot. With Replace the existing roster is
// discarded and the snapshot must stand alone; otherwise records with matching
// ids are updated, others added, and children may be assigned to therapists
// already stored.
// PRE: none
// POST: all records written, or none
func ExecuteImportRoster(ctx context.Context, input ImportRosterInput, deps RosterDeps) (ImportRosterResult, error) {
	validate := input.Snapshot.ValidateRecords
	if input.Replace {
		validate = input.Snapshot.Validate
	}
	if err := validate(); err != nil {
		return ImportRosterResult{}, err
	}
	ts, cs := input.Snapshot.Records(deps.now())
	if err := deps.Roster.Load(ctx, ts, cs, input.Replace); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ImportRosterResult{}, fmt.Errorf("%w: %v", snapshot.ErrCorruptSnapshot, err)
		}
		return ImportRosterResult{}, fmt.Errorf("import roster: %w", err)
	}
	slog.Info("roster_event", "event", "roster_imported", "therapists", len(ts), "children", len(cs), "replace", input.Replace)
	return ImportRosterResult{Therapists: len(ts), Children: len(cs)}, nil
}
