package store

import (
	"context"
	"fmt"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// CreateUser inserts a new account. A duplicate email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if isUnique(err) {
		return fmt.Errorf("email already registered: %w", apperr.ErrConflict)
	}
	if err != nil {
		return transport("insert user", err)
	}
	return nil
}

// UserByEmail loads an account including its password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.q.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at, updated_at
		 FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, notFoundOr("query user", "user", err)
	}
	return u, nil
}

// User loads an account without its password hash.
func (s *Store) User(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.q.QueryRowContext(ctx,
		`SELECT id, email, name, role, created_at, updated_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, notFoundOr("query user", "user", err)
	}
	return u, nil
}
