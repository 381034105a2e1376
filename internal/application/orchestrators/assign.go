package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	emailAdapter "therapro/internal/adapters/email"
	"therapro/internal/adapters/storage"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// ChildStoreForAssign defines the store interface needed by the assignment orchestrators.
type ChildStoreForAssign interface {
	GetByID(ctx context.Context, id string) (child.Child, error)
	Save(ctx context.Context, c child.Child) error
	AssignMany(ctx context.Context, therapistID string, childIDs []string) error
}

// Notifier tells a therapist about new assignments. A nil Sender disables it.
type Notifier struct {
	Sender emailAdapter.Sender
	From   string
}

// AssignDeps holds dependencies for AssignChildren, ToggleAssignment and UnassignChild.
type AssignDeps struct {
	TherapistStore TherapistLookup
	ChildStore     ChildStoreForAssign
	Notifier       Notifier
}

// AssignChildrenInput names a therapist and the children to give them.
type AssignChildrenInput struct {
	TherapistID string
	ChildIDs    []string
}

// ExecuteAssignChildren assigns every listed child to the therapist. A child
// already assigned elsewhere moves. Children not listed keep their assignment.
// PRE: TherapistID and every child id exist
// POST: exactly the listed children have AssignedTo == TherapistID changed;
// nothing changes when any id is unknown or the list is empty
func ExecuteAssignChildren(ctx context.Context, input AssignChildrenInput, deps AssignDeps) error {
	ids := dedupe(input.ChildIDs)
	if len(ids) == 0 {
		return nil
	}
	t, err := deps.TherapistStore.GetByID(ctx, input.TherapistID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrTherapistNotFound
		}
		return err
	}

	var newlyAssigned []string
	for _, id := range ids {
		c, err := deps.ChildStore.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrChildNotFound, id)
			}
			return err
		}
		if !c.IsAssignedTo(t.ID) {
			newlyAssigned = append(newlyAssigned, c.Name)
		}
	}

	if err := deps.ChildStore.AssignMany(ctx, t.ID, ids); err != nil {
		return fmt.Errorf("assign children: %w", err)
	}
	slog.Info("roster_event", "event", "children_assigned", "therapist_id", t.ID, "count", len(ids))
	deps.Notifier.assigned(ctx, t, newlyAssigned)
	return nil
}

// ToggleAssignmentInput names one therapist/child pair.
type ToggleAssignmentInput struct {
	TherapistID string
	ChildID     string
}

// ExecuteToggleAssignment assigns the child to the therapist, or unassigns it
// when it is already theirs. Returns whether the child ends up assigned.
// PRE: both ids exist
// POST: the child has at most one therapist
func ExecuteToggleAssignment(ctx context.Context, input ToggleAssignmentInput, deps AssignDeps) (bool, error) {
	t, err := deps.TherapistStore.GetByID(ctx, input.TherapistID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, ErrTherapistNotFound
		}
		return false, err
	}
	c, err := deps.ChildStore.GetByID(ctx, input.ChildID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, ErrChildNotFound
		}
		return false, err
	}

	if c.IsAssignedTo(t.ID) {
		c.Unassign()
	} else {
		c.AssignTo(t.ID)
	}
	if err := deps.ChildStore.Save(ctx, c); err != nil {
		return false, fmt.Errorf("save child: %w", err)
	}
	assigned := c.IsAssigned()
	slog.Info("roster_event", "event", "assignment_toggled", "therapist_id", t.ID, "child_id", c.ID, "assigned", assigned)
	if assigned {
		deps.Notifier.assigned(ctx, t, []string{c.Name})
	}
	return assigned, nil
}

// ExecuteUnassignChild clears a child's therapist.
// PRE: childID exists
// POST: the child is unassigned
func ExecuteUnassignChild(ctx context.Context, childID string, deps AssignDeps) error {
	c, err := deps.ChildStore.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrChildNotFound
		}
		return err
	}
	if !c.IsAssigned() {
		return nil
	}
	previous := c.AssignedTo
	c.Unassign()
	if err := deps.ChildStore.Save(ctx, c); err != nil {
		return fmt.Errorf("save child: %w", err)
	}
	slog.Info("roster_event", "event", "child_unassigned", "child_id", c.ID, "therapist_id", previous)
	return nil
}

// assigned sends the notification. Failures are logged, never returned.
func (n Notifier) assigned(ctx context.Context, t therapist.Therapist, names []string) {
	if n.Sender == nil || len(names) == 0 || t.Email == "" {
		return
	}
	var body strings.Builder
	body.WriteString("<p>Hello " + html.EscapeString(t.Name) + ",</p>")
	body.WriteString("<p>The following children have been assigned to you:</p><ul>")
	for _, name := range names {
		body.WriteString("<li>" + html.EscapeString(name) + "</li>")
	}
	body.WriteString("</ul><p>Sign in to TheraPro to see their details.</p>")

	_, err := n.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{t.Email},
		From:    n.From,
		Subject: "New children assigned to you",
		HTML:    body.String(),
	})
	if err != nil {
		slog.Warn("notify_failed", "therapist_id", t.ID, "error", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
