package activity

import "errors"

// State is a step of the launch flow.
type State string

const (
	StateBrowsing  State = "browsing"
	StateSelecting State = "selecting"
	StateRunning   State = "running"
)

// Launch errors
var (
	ErrNoActivity   = errors.New("choose an activity first")
	ErrNoStudent    = errors.New("select a student to start the activity")
	ErrNotSelecting = errors.New("an activity is already running")
)

// Launch tracks one therapist's pass through browse -> select student -> run.
// The zero value is browsing with nothing selected.
type Launch struct {
	Activity  Activity
	StudentID string
	running   bool
}

// State derives the current step from the selections made so far.
// INVARIANT: Launch is not mutated
func (l Launch) State() State {
	switch {
	case l.running:
		return StateRunning
	case l.Activity.ID != "":
		return StateSelecting
	}
	return StateBrowsing
}

// Select picks an activity and moves to student selection.
// PRE: not running
// POST: State() == StateSelecting, any previous student choice cleared
func (l *Launch) Select(a Activity) error {
	if l.running {
		return ErrNotSelecting
	}
	if a.ID == "" {
		return ErrNoActivity
	}
	l.Activity = a
	l.StudentID = ""
	return nil
}

// Choose records the student the activity is for.
// PRE: State() == StateSelecting
func (l *Launch) Choose(studentID string) error {
	if l.running {
		return ErrNotSelecting
	}
	if l.Activity.ID == "" {
		return ErrNoActivity
	}
	l.StudentID = studentID
	return nil
}

// CanStart reports whether Start would succeed; the UI disables Start otherwise.
func (l Launch) CanStart() bool {
	return !l.running && l.Activity.ID != "" && l.StudentID != ""
}

// Start moves to running.
// PRE: an activity and a student are selected
// POST: State() == StateRunning
func (l *Launch) Start() error {
	if l.running {
		return ErrNotSelecting
	}
	if l.Activity.ID == "" {
		return ErrNoActivity
	}
	if l.StudentID == "" {
		return ErrNoStudent
	}
	l.running = true
	return nil
}

// Exit abandons the launch from any state.
// POST: State() == StateBrowsing with no selections
func (l *Launch) Exit() {
	*l = Launch{}
}

// Resume rebuilds a running launch from a verified ticket.
func Resume(a Activity, studentID string) (Launch, error) {
	var l Launch
	if err := l.Select(a); err != nil {
		return Launch{}, err
	}
	if err := l.Choose(studentID); err != nil {
		return Launch{}, err
	}
	if err := l.Start(); err != nil {
		return Launch{}, err
	}
	return l, nil
}
