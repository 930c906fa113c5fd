package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"feedboard/domain"
)

// InsertUser writes a new user with a pre-hashed password.
func (s *Store) InsertUser(ctx context.Context, u *domain.User, hashedPassword string) error {
	result, err := s.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password, name, status, createdAt, updatedAt) VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Email, hashedPassword, u.Name, u.Status, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Errorf("user %q not created", u.ID)
	}
	return nil
}

// UserByEmail also returns the stored bcrypt hash for credential checks.
func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, string, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT id, email, password, name, status, createdAt, updatedAt FROM users WHERE email = ?", email)

	u := domain.User{}
	var hashed string
	err := row.Scan(&u.ID, &u.Email, &hashed, &u.Name, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, "", errors.NotFoundf("user %q", email)
	}
	if err != nil {
		return nil, "", err
	}
	return &u, hashed, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT id, email, name, status, createdAt, updatedAt FROM users WHERE id = ?", id)

	u := domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("user %q", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(email) FROM users WHERE email = ?", email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count != 0, nil
}

func (s *Store) UpdateUserStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE users SET status = ?, updatedAt = ? WHERE id = ?", status, updatedAt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFoundf("user %q", id)
	}
	return nil
}
