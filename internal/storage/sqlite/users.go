package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"taskboard/internal/models"
	"taskboard/internal/storage"
)

const userColumns = `id, email, fullname, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// CreateUser persists a new account. A duplicate email yields storage.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO users(email, fullname, password_hash) VALUES(?, ?, ?)`, u.Email, u.FullName, u.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %q: %w", u.Email, storage.ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, notFound("user", id)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail fetches a user by exact email match.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %q: %w", email, storage.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// MissingUsers returns the ids that do not resolve to a user, sorted ascending
// and without duplicates.
func (s *Store) MissingUsers(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := placeholders(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup users: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		found[id] = struct{}{}
		missing = append(missing, id)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}
