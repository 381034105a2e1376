package therapist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"therapro/internal/adapters/storage"
	domain "therapro/internal/domain/therapist"
)

const columns = "id, name, email, specialization, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new therapist store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Therapist by its ID.
// PRE: id is non-empty
// POST: Returns the therapist or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Therapist, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM therapist WHERE id = ?", id)
	entity, err := scanTherapist(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Therapist{}, fmt.Errorf("therapist %s: %w", id, storage.ErrNotFound)
	}
	return entity, err
}

// Save inserts or updates a Therapist.
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Therapist) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO therapist (`+columns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			email=excluded.email,
			specialization=excluded.specialization`,
		entity.ID,
		entity.Name,
		entity.Email,
		entity.Specialization,
		storage.FormatTime(entity.CreatedAt),
	)
	return err
}

// List retrieves therapists, newest first.
// PRE: filter has valid parameters
// POST: Returns at most filter.Limit therapists
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Therapist, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns+" FROM therapist ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		storage.Limit(filter.Limit), filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Therapist
	for rows.Next() {
		entity, err := scanTherapist(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of therapists.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM therapist").Scan(&n)
	return n, err
}

func scanTherapist(scan func(dest ...any) error) (domain.Therapist, error) {
	var entity domain.Therapist
	var createdAt string
	if err := scan(&entity.ID, &entity.Name, &entity.Email, &entity.Specialization, &createdAt); err != nil {
		return domain.Therapist{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	return entity, nil
}
