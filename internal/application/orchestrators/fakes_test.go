package orchestrators

import (
	"context"
	"errors"
	"fmt"

	emailAdapter "therapro/internal/adapters/email"
	"therapro/internal/adapters/storage"
	"therapro/internal/domain/account"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// --- in-memory test doubles ---

type memAccounts struct {
	byUsername map[string]account.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byUsername: make(map[string]account.Account)}
}

func (s *memAccounts) GetByUsername(_ context.Context, username string) (account.Account, error) {
	a, ok := s.byUsername[username]
	if !ok {
		return account.Account{}, fmt.Errorf("account %q: %w", username, storage.ErrNotFound)
	}
	return a, nil
}

func (s *memAccounts) Save(_ context.Context, a account.Account) error {
	s.byUsername[a.Username] = a
	return nil
}

type memTherapists struct {
	byID map[string]therapist.Therapist
}

func newMemTherapists(ts ...therapist.Therapist) *memTherapists {
	s := &memTherapists{byID: make(map[string]therapist.Therapist)}
	for _, t := range ts {
		s.byID[t.ID] = t
	}
	return s
}

func (s *memTherapists) GetByID(_ context.Context, id string) (therapist.Therapist, error) {
	t, ok := s.byID[id]
	if !ok {
		return therapist.Therapist{}, fmt.Errorf("therapist %s: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

func (s *memTherapists) Save(_ context.Context, t therapist.Therapist) error {
	s.byID[t.ID] = t
	return nil
}

// memRemover removes therapists from memTherapists and memChildren together.
// failWith makes the removal fail before anything is touched, as a rolled
// back transaction would.
type memRemover struct {
	therapists *memTherapists
	children   *memChildren
	failWith   error
}

func (r *memRemover) RemoveTherapist(_ context.Context, id string) (int, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	if _, ok := r.therapists.byID[id]; !ok {
		return 0, fmt.Errorf("therapist %s: %w", id, storage.ErrNotFound)
	}
	n := 0
	for cid, c := range r.children.byID {
		if c.IsAssignedTo(id) {
			c.Unassign()
			r.children.byID[cid] = c
			n++
		}
	}
	delete(r.therapists.byID, id)
	return n, nil
}

type memChildren struct {
	byID map[string]child.Child
	// failAssign makes AssignMany fail, to check nothing else was written first.
	failAssign bool
}

func newMemChildren(cs ...child.Child) *memChildren {
	s := &memChildren{byID: make(map[string]child.Child)}
	for _, c := range cs {
		s.byID[c.ID] = c
	}
	return s
}

func (s *memChildren) GetByID(_ context.Context, id string) (child.Child, error) {
	c, ok := s.byID[id]
	if !ok {
		return child.Child{}, fmt.Errorf("child %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *memChildren) Save(_ context.Context, c child.Child) error {
	s.byID[c.ID] = c
	return nil
}

func (s *memChildren) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *memChildren) AssignMany(_ context.Context, therapistID string, ids []string) error {
	if s.failAssign {
		return errors.New("disk full")
	}
	for _, id := range ids {
		c, ok := s.byID[id]
		if !ok {
			return fmt.Errorf("child %s: %w", id, storage.ErrNotFound)
		}
		c.AssignTo(therapistID)
		s.byID[id] = c
	}
	return nil
}

func (s *memChildren) assignedTo(id string) string {
	return s.byID[id].AssignedTo
}

type memRoster struct {
	therapists []therapist.Therapist
	children   []child.Child
}

func (r *memRoster) IsEmpty(_ context.Context) (bool, error) {
	return len(r.therapists) == 0 && len(r.children) == 0, nil
}

func (r *memRoster) Load(_ context.Context, ts []therapist.Therapist, cs []child.Child, replace bool) error {
	known := make(map[string]bool)
	for _, t := range ts {
		known[t.ID] = true
	}
	if !replace {
		for _, t := range r.therapists {
			known[t.ID] = true
		}
	}
	for _, c := range cs {
		if c.AssignedTo != "" && !known[c.AssignedTo] {
			return fmt.Errorf("child %s: therapist %s: %w", c.ID, c.AssignedTo, storage.ErrNotFound)
		}
	}
	if replace {
		r.therapists, r.children = nil, nil
	}
	r.therapists = append(r.therapists, ts...)
	r.children = append(r.children, cs...)
	return nil
}

type recordingSender struct {
	sent []emailAdapter.SendRequest
	err  error
}

func (s *recordingSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if s.err != nil {
		return emailAdapter.SendResult{}, s.err
	}
	s.sent = append(s.sent, req)
	return emailAdapter.SendResult{MessageID: "m"}, nil
}

// seedTherapists and seedChildren mirror the shipped roster.
func seedTherapists() *memTherapists {
	return newMemTherapists(
		therapist.Therapist{ID: "t1", Name: "Karen Baker", Email: "karen@therapro.test"},
		therapist.Therapist{ID: "t2", Name: "Ryan Harris", Email: "ryan@therapro.test"},
	)
}

func seedChildren() *memChildren {
	return newMemChildren(
		child.Child{ID: "c1", Name: "Ethan Patterson", AssignedTo: "t1"},
		child.Child{ID: "c2", Name: "Zoe Kelly", AssignedTo: "t2"},
		child.Child{ID: "c3", Name: "Caleb Garrett"},
		child.Child{ID: "c4", Name: "Maya Owens", AssignedTo: "t2"},
	)
}
