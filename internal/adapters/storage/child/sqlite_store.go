package child

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"therapro/internal/adapters/storage"
	domain "therapro/internal/domain/child"
)

const columns = "id, name, age, diagnosis, notes, progress, assigned_to, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new child store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Child by its ID.
// PRE: id is non-empty
// POST: Returns the child or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Child, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM child WHERE id = ?", id)
	entity, err := scanChild(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Child{}, fmt.Errorf("child %s: %w", id, storage.ErrNotFound)
	}
	return entity, err
}

// Save inserts or updates a Child, including its assignment.
// PRE: entity has been validated; AssignedTo is empty or an existing therapist
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Child) error {
	var age any
	if entity.Age != nil {
		age = *entity.Age
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO child (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			age=excluded.age,
			diagnosis=excluded.diagnosis,
			notes=excluded.notes,
			progress=excluded.progress,
			assigned_to=excluded.assigned_to`,
		entity.ID,
		entity.Name,
		age,
		entity.Diagnosis,
		entity.Notes,
		entity.Progress,
		nullable(entity.AssignedTo),
		storage.FormatTime(entity.CreatedAt),
	)
	return err
}

// Delete removes a Child.
// PRE: id is non-empty
// POST: No child with id exists
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM child WHERE id = ?", id)
	return err
}

// List retrieves children, newest first.
// PRE: filter has valid parameters
// POST: Returns matching children
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Child, error) {
	var q strings.Builder
	var args []any
	q.WriteString("SELECT " + columns + " FROM child")
	switch {
	case filter.AssignedTo != "":
		q.WriteString(" WHERE assigned_to = ?")
		args = append(args, filter.AssignedTo)
	case filter.Unassigned:
		q.WriteString(" WHERE assigned_to IS NULL")
	}
	q.WriteString(" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?")
	args = append(args, storage.Limit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Child
	for rows.Next() {
		entity, err := scanChild(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of children.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM child").Scan(&n)
	return n, err
}

// AssignMany points every listed child at therapistID in one transaction.
// PRE: therapistID and every child id exist
// POST: exactly the listed children have AssignedTo == therapistID changed; others untouched
func (s *SQLiteStore) AssignMany(ctx context.Context, therapistID string, childIDs []string) error {
	if len(childIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range childIDs {
		res, err := tx.ExecContext(ctx, "UPDATE child SET assigned_to = ? WHERE id = ?", therapistID, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("child %s: %w", id, storage.ErrNotFound)
		}
	}
	return tx.Commit()
}

// CountByTherapist returns the number of children per therapist id.
// Unassigned children are counted under the empty key.
func (s *SQLiteStore) CountByTherapist(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT COALESCE(assigned_to, ''), COUNT(*) FROM child GROUP BY assigned_to")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func scanChild(scan func(dest ...any) error) (domain.Child, error) {
	var entity domain.Child
	var age sql.NullInt64
	var assignedTo sql.NullString
	var createdAt string
	if err := scan(
		&entity.ID,
		&entity.Name,
		&age,
		&entity.Diagnosis,
		&entity.Notes,
		&entity.Progress,
		&assignedTo,
		&createdAt,
	); err != nil {
		return domain.Child{}, err
	}
	if age.Valid {
		entity.Age = domain.Years(int(age.Int64))
	}
	entity.AssignedTo = assignedTo.String
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	return entity, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
