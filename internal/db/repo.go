package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	FirstName    string
	LastName     string
}

// Users reads accounts from the users table.
type Users struct {
	q Querier
}

func NewUsers(q Querier) *Users { return &Users{q: q} }

func (u *Users) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := u.q.QueryRow(ctx, `
		SELECT id, email, password_hash, role, COALESCE(first_name, ''), COALESCE(last_name, '')
		FROM users
		WHERE email = $1 AND is_active = true`, email)

	usr := &User{}
	if err := row.Scan(&usr.ID, &usr.Email, &usr.PasswordHash, &usr.Role, &usr.FirstName, &usr.LastName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return usr, nil
}
