package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"therapro/internal/adapters/storage"
	domain "therapro/internal/domain/account"
)

const columns = "id, username, password_hash, role, therapist_id, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the account or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM account WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return entity, err
}

// GetByUsername retrieves an Account by its login name.
// PRE: username is non-empty
// POST: Returns the account or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM account WHERE username = ?", username)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %q: %w", username, storage.ErrNotFound)
	}
	return entity, err
}

// Save inserts or updates an Account.
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (`+columns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username=excluded.username,
			password_hash=excluded.password_hash,
			role=excluded.role,
			therapist_id=excluded.therapist_id`,
		entity.ID,
		entity.Username,
		entity.PasswordHash,
		entity.Role,
		entity.TherapistID,
		storage.FormatTime(entity.CreatedAt),
	)
	return err
}

// Delete removes an Account.
// PRE: id is non-empty
// POST: No account with id exists
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	return err
}

// List retrieves accounts, oldest first, optionally restricted to one role.
// PRE: filter has valid parameters
// POST: Returns matching accounts
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var q strings.Builder
	var args []any
	q.WriteString("SELECT " + columns + " FROM account")
	if filter.Role != "" {
		q.WriteString(" WHERE role = ?")
		args = append(args, filter.Role)
	}
	q.WriteString(" ORDER BY created_at, username LIMIT ? OFFSET ?")
	args = append(args, storage.Limit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&n)
	return n, err
}

func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	if err := scan(
		&entity.ID,
		&entity.Username,
		&entity.PasswordHash,
		&entity.Role,
		&entity.TherapistID,
		&createdAt,
	); err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	return entity, nil
}
