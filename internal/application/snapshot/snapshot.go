// Package snapshot reads and writes the whole roster as one JSON or YAML
// document, used for first-start seeding, import and export.
package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

//go:embed seed.json
var seedJSON []byte

// Errors distinguish "nothing stored yet" from "stored but unusable".
var (
	ErrNoSnapshot      = errors.New("snapshot is empty")
	ErrCorruptSnapshot = errors.New("snapshot is corrupt")
	ErrUnknownFormat   = errors.New("unknown snapshot format")
)

// Format is a serialization of a Snapshot.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatJSON
}

// Therapist is the serialized form of a therapist.
type Therapist struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Email          string `json:"email" yaml:"email"`
	Specialization string `json:"specialization,omitempty" yaml:"specialization,omitempty"`
}

// Child is the serialized form of a child. AssignedTo may be null or absent.
type Child struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Age        *int   `json:"age,omitempty" yaml:"age,omitempty"`
	Diagnosis  string `json:"diagnosis,omitempty" yaml:"diagnosis,omitempty"`
	Notes      string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Progress   string `json:"progress,omitempty" yaml:"progress,omitempty"`
	AssignedTo string `json:"assignedTo,omitempty" yaml:"assignedTo,omitempty"`
}

// Snapshot is the full roster. List order is display order, newest first.
type Snapshot struct {
	Therapists []Therapist `json:"therapists" yaml:"therapists"`
	Children   []Child     `json:"children" yaml:"children"`
}

// Default returns the roster shipped with the binary.
func Default() Snapshot {
	s, err := Decode(bytes.NewReader(seedJSON), FormatJSON)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		panic("embedded seed is invalid: " + err.Error())
	}
	return s
}

// Decode reads a snapshot and checks its records. Assignments may name
// therapists outside the snapshot; Validate rejects those where the snapshot
// must stand alone.
// PRE: format is FormatJSON or FormatYAML
// POST: Returns a snapshot passing ValidateRecords, ErrNoSnapshot for blank
// input, or an error wrapping ErrCorruptSnapshot
func Decode(r io.Reader, format Format) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}

	var s Snapshot
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&s)
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := s.ValidateRecords(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Encode writes s in the given format.
func Encode(w io.Writer, s Snapshot, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Validate checks that the snapshot could be loaded into an empty roster:
// ValidateRecords plus assignments that point inside the snapshot.
func (s Snapshot) Validate() error {
	if err := s.ValidateRecords(); err != nil {
		return err
	}
	therapists := make(map[string]bool, len(s.Therapists))
	for _, t := range s.Therapists {
		therapists[t.ID] = true
	}
	for _, c := range s.Children {
		if c.AssignedTo != "" && !therapists[c.AssignedTo] {
			return corrupt("child %q is assigned to unknown therapist %q", c.ID, c.AssignedTo)
		}
	}
	return nil
}

// ValidateRecords checks each record on its own: unique ids, required fields
// and non-negative ages.
func (s Snapshot) ValidateRecords() error {
	therapists := make(map[string]bool, len(s.Therapists))
	for i, t := range s.Therapists {
		if strings.TrimSpace(t.ID) == "" {
			return corrupt("therapist %d has no id", i)
		}
		if therapists[t.ID] {
			return corrupt("duplicate therapist id %q", t.ID)
		}
		therapists[t.ID] = true
		rec := t.record(time.Time{})
		if err := rec.Validate(); err != nil {
			return corrupt("therapist %q: %v", t.ID, err)
		}
	}
	children := make(map[string]bool, len(s.Children))
	for i, c := range s.Children {
		if strings.TrimSpace(c.ID) == "" {
			return corrupt("child %d has no id", i)
		}
		if children[c.ID] {
			return corrupt("duplicate child id %q", c.ID)
		}
		children[c.ID] = true
		rec := c.record(time.Time{})
		if err := rec.Validate(); err != nil {
			return corrupt("child %q: %v", c.ID, err)
		}
	}
	return nil
}

// Records converts the snapshot to domain records. Creation times step back
// one millisecond per entry from now so newest-first order matches the snapshot.
func (s Snapshot) Records(now time.Time) ([]therapist.Therapist, []child.Child) {
	ts := make([]therapist.Therapist, len(s.Therapists))
	for i, t := range s.Therapists {
		ts[i] = t.record(now.Add(-time.Duration(i) * time.Millisecond))
	}
	cs := make([]child.Child, len(s.Children))
	for i, c := range s.Children {
		cs[i] = c.record(now.Add(-time.Duration(i) * time.Millisecond))
	}
	return ts, cs
}

// FromRecords builds a snapshot from domain records, keeping their order.
func FromRecords(ts []therapist.Therapist, cs []child.Child) Snapshot {
	s := Snapshot{
		Therapists: make([]Therapist, len(ts)),
		Children:   make([]Child, len(cs)),
	}
	for i, t := range ts {
		s.Therapists[i] = Therapist{ID: t.ID, Name: t.Name, Email: t.Email, Specialization: t.Specialization}
	}
	for i, c := range cs {
		s.Children[i] = Child{ID: c.ID, Name: c.Name, Age: c.Age, Diagnosis: c.Diagnosis, Notes: c.Notes, Progress: c.Progress, AssignedTo: c.AssignedTo}
	}
	return s
}

func (t Therapist) record(created time.Time) therapist.Therapist {
	r := therapist.Therapist{ID: t.ID, Name: t.Name, Email: t.Email, Specialization: t.Specialization, CreatedAt: created}
	r.Normalize()
	return r
}

func (c Child) record(created time.Time) child.Child {
	r := child.Child{ID: c.ID, Name: c.Name, Age: c.Age, Diagnosis: c.Diagnosis, Notes: c.Notes, Progress: c.Progress, AssignedTo: c.AssignedTo, CreatedAt: created}
	r.Normalize()
	return r
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}
