// Package roster performs whole-roster writes that must succeed or fail together.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"therapro/internal/adapters/storage"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// SQLiteStore replaces or appends therapists and children atomically.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new roster store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// IsEmpty reports whether there are no therapists and no children.
func (s *SQLiteStore) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT (SELECT COUNT(*) FROM therapist) + (SELECT COUNT(*) FROM child)").Scan(&n)
	return n == 0, err
}

// Load writes therapists then children in one transaction. With replace set,
// existing rows are removed first; otherwise rows with matching ids are updated.
// A child assigned to a therapist that is neither in the batch nor stored
// fails the load with ErrNotFound.
// PRE: every record is valid
// POST: all rows written, or none
func (s *SQLiteStore) Load(ctx context.Context, therapists []therapist.Therapist, children []child.Child, replace bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if replace {
		for _, stmt := range []string{"DELETE FROM child", "DELETE FROM therapist"} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	for _, t := range therapists {
		if err := upsertTherapist(ctx, tx, t); err != nil {
			return fmt.Errorf("therapist %s: %w", t.ID, err)
		}
	}
	for _, c := range children {
		if c.AssignedTo != "" {
			var one int
			err := tx.QueryRowContext(ctx, "SELECT 1 FROM therapist WHERE id = ?", c.AssignedTo).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("child %s: therapist %s: %w", c.ID, c.AssignedTo, storage.ErrNotFound)
			}
			if err != nil {
				return err
			}
		}
		if err := upsertChild(ctx, tx, c); err != nil {
			return fmt.Errorf("child %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// RemoveTherapist unassigns every child of the therapist and deletes the
// therapist in one transaction. Returns how many children were released.
// PRE: id is non-empty
// POST: both changes are applied, or neither
func (s *SQLiteStore) RemoveTherapist(ctx context.Context, id string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE child SET assigned_to = NULL WHERE assigned_to = ?", id)
	if err != nil {
		return 0, fmt.Errorf("clear assignments: %w", err)
	}
	released, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	res, err = tx.ExecContext(ctx, "DELETE FROM therapist WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete therapist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("therapist %s: %w", id, storage.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(released), nil
}

func upsertTherapist(ctx context.Context, tx *sql.Tx, t therapist.Therapist) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO therapist (id, name, email, specialization, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, specialization=excluded.specialization`,
		t.ID, t.Name, t.Email, t.Specialization, storage.FormatTime(t.CreatedAt),
	)
	return err
}

func upsertChild(ctx context.Context, tx *sql.Tx, c child.Child) error {
	var age, assignedTo any
	if c.Age != nil {
		age = *c.Age
	}
	if c.AssignedTo != "" {
		assignedTo = c.AssignedTo
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO child (id, name, age, diagnosis, notes, progress, assigned_to, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, age=excluded.age, diagnosis=excluded.diagnosis,
			notes=excluded.notes, progress=excluded.progress, assigned_to=excluded.assigned_to`,
		c.ID, c.Name, age, c.Diagnosis, c.Notes, c.Progress, assignedTo, storage.FormatTime(c.CreatedAt),
	)
	return err
}
