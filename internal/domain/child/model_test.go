package child_test

import (
	"errors"
	"testing"

	"therapro/internal/domain/child"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		raw     string
		want    *int
		wantErr bool
	}{
		{raw: "", want: nil},
		{raw: "   ", want: nil},
		{raw: "0", want: child.Years(0)},
		{raw: " 9 ", want: child.Years(9)},
		{raw: "-1", wantErr: true},
		{raw: "nine", wantErr: true},
		{raw: "7.5", wantErr: true},
	}
	for _, tt := range tests {
		got, err := child.ParseAge(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, child.ErrInvalidAge) {
				t.Errorf("ParseAge(%q) error = %v, want ErrInvalidAge", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAge(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParseAge(%q) = %d, want nil", tt.raw, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("ParseAge(%q) = %v, want %d", tt.raw, got, *tt.want)
		}
	}
}

func TestChildValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   child.Child
		wantErr error
	}{
		{name: "name only", input: child.Child{ID: "c1", Name: "Ethan Patterson"}},
		{name: "full record", input: child.Child{ID: "c2", Name: "Zoe Kelly", Age: child.Years(7), Diagnosis: "Autism", AssignedTo: "t2"}},
		{name: "blank name", input: child.Child{ID: "c3", Name: " "}, wantErr: child.ErrEmptyName},
		{name: "negative age", input: child.Child{ID: "c4", Name: "X", Age: child.Years(-2)}, wantErr: child.ErrInvalidAge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.input.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChildAssignment(t *testing.T) {
	c := child.Child{ID: "c1", Name: "Ethan"}
	if c.IsAssigned() {
		t.Fatal("new child should be unassigned")
	}
	c.AssignTo("t1")
	if !c.IsAssignedTo("t1") || c.IsAssignedTo("t2") {
		t.Errorf("after AssignTo(t1): AssignedTo = %q", c.AssignedTo)
	}
	c.AssignTo("t2")
	if c.IsAssignedTo("t1") {
		t.Error("reassigning must replace the previous therapist")
	}
	c.Unassign()
	if c.IsAssigned() {
		t.Error("Unassign() left a therapist")
	}
	if c.IsAssignedTo("") {
		t.Error("IsAssignedTo(\"\") must be false")
	}
}

func TestChildAgeLabel(t *testing.T) {
	if got := (child.Child{}).AgeLabel(); got != "unknown" {
		t.Errorf("AgeLabel() = %q, want unknown", got)
	}
	if got := (child.Child{Age: child.Years(10)}).AgeLabel(); got != "10 yrs" {
		t.Errorf("AgeLabel() = %q, want 10 yrs", got)
	}
}
