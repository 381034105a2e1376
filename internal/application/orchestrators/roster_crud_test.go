package orchestrators

import (
	"context"
	"errors"
	"testing"

	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

func TestExecuteCreateTherapist(t *testing.T) {
	store := newMemTherapists()
	deps := CreateTherapistDeps{TherapistStore: store}
	ctx := context.Background()

	a, err := ExecuteCreateTherapist(ctx, CreateTherapistInput{Name: " Lina Chen ", Email: "lina@therapro.test"}, deps)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := ExecuteCreateTherapist(ctx, CreateTherapistInput{Name: "Lina Chen", Email: "lina@therapro.test", Specialization: "ABA"}, deps)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids must be fresh and unique: %q %q", a.ID, b.ID)
	}
	if a.Name != "Lina Chen" || a.Specialization != "" {
		t.Errorf("stored %+v", a)
	}
	if len(store.byID) != 2 {
		t.Errorf("store size = %d, want 2", len(store.byID))
	}
}

func TestExecuteCreateTherapist_MissingFieldsStoreNothing(t *testing.T) {
	tests := []struct {
		name  string
		input CreateTherapistInput
		want  error
	}{
		{"blank name", CreateTherapistInput{Name: "  ", Email: "x@y"}, therapist.ErrEmptyName},
		{"blank email", CreateTherapistInput{Name: "X", Email: ""}, therapist.ErrEmptyEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedTherapists()
			_, err := ExecuteCreateTherapist(context.Background(), tt.input, CreateTherapistDeps{TherapistStore: store})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(store.byID) != 2 {
				t.Errorf("store size = %d, want unchanged 2", len(store.byID))
			}
		})
	}
}

func TestExecuteCreateChild(t *testing.T) {
	tests := []struct {
		name     string
		input    CreateChildInput
		wantErr  error
		wantAge  *int
		assigned string
	}{
		{name: "name only", input: CreateChildInput{Name: "Noah"}},
		{name: "with age", input: CreateChildInput{Name: "Noah", Age: "8"}, wantAge: child.Years(8)},
		{name: "assigned", input: CreateChildInput{Name: "Noah", AssignedTo: "t1"}, assigned: "t1"},
		{name: "blank name", input: CreateChildInput{Name: " "}, wantErr: child.ErrEmptyName},
		{name: "bad age", input: CreateChildInput{Name: "Noah", Age: "eight"}, wantErr: child.ErrInvalidAge},
		{name: "negative age", input: CreateChildInput{Name: "Noah", Age: "-1"}, wantErr: child.ErrInvalidAge},
		{name: "unknown therapist", input: CreateChildInput{Name: "Noah", AssignedTo: "t9"}, wantErr: ErrTherapistNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			children := seedChildren()
			deps := CreateChildDeps{ChildStore: children, TherapistStore: seedTherapists()}
			got, err := ExecuteCreateChild(context.Background(), tt.input, deps)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if len(children.byID) != 4 {
					t.Errorf("store size = %d, want unchanged 4", len(children.byID))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(children.byID) != 5 {
				t.Errorf("store size = %d, want 5", len(children.byID))
			}
			if (got.Age == nil) != (tt.wantAge == nil) || (got.Age != nil && *got.Age != *tt.wantAge) {
				t.Errorf("age = %v, want %v", got.Age, tt.wantAge)
			}
			if got.AssignedTo != tt.assigned {
				t.Errorf("AssignedTo = %q, want %q", got.AssignedTo, tt.assigned)
			}
		})
	}
}

func TestExecuteRemoveTherapist_UnassignsChildren(t *testing.T) {
	therapists, children := seedTherapists(), seedChildren()
	deps := RemoveTherapistDeps{Roster: &memRemover{therapists: therapists, children: children}}

	if err := ExecuteRemoveTherapist(context.Background(), "t2", deps); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := therapists.byID["t2"]; ok {
		t.Error("t2 still stored")
	}
	for _, id := range []string{"c2", "c4"} {
		if got := children.assignedTo(id); got != "" {
			t.Errorf("%s still assigned to %q", id, got)
		}
	}
	if got := children.assignedTo("c1"); got != "t1" {
		t.Errorf("c1 assignment changed to %q", got)
	}

	if err := ExecuteRemoveTherapist(context.Background(), "t2", deps); !errors.Is(err, ErrTherapistNotFound) {
		t.Errorf("second remove = %v, want ErrTherapistNotFound", err)
	}
}

func TestExecuteRemoveTherapist_StoreFailure(t *testing.T) {
	therapists, children := seedTherapists(), seedChildren()
	ioErr := errors.New("disk I/O error")
	deps := RemoveTherapistDeps{Roster: &memRemover{therapists: therapists, children: children, failWith: ioErr}}

	err := ExecuteRemoveTherapist(context.Background(), "t2", deps)
	if !errors.Is(err, ioErr) || errors.Is(err, ErrTherapistNotFound) {
		t.Fatalf("remove = %v, want the store error", err)
	}
	if _, ok := therapists.byID["t2"]; !ok {
		t.Error("t2 removed despite the failure")
	}
	for _, id := range []string{"c2", "c4"} {
		if got := children.assignedTo(id); got != "t2" {
			t.Errorf("%s assignment changed to %q", id, got)
		}
	}
}

func TestExecuteRemoveChild(t *testing.T) {
	children := seedChildren()
	deps := RemoveChildDeps{ChildStore: children}

	if err := ExecuteRemoveChild(context.Background(), "c2", deps); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(children.byID) != 3 {
		t.Errorf("store size = %d, want 3", len(children.byID))
	}
	if err := ExecuteRemoveChild(context.Background(), "c2", deps); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("second remove = %v, want ErrChildNotFound", err)
	}
}
