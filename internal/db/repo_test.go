package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByEmail(t *testing.T) {
	testCases := []struct {
		name      string
		rows      *pgxmock.Rows
		rowErr    error
		expectErr error
		expect    *User
	}{
		{
			name: "found",
			rows: pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "first_name", "last_name"}).
				AddRow(int64(3), "ana@resort.test", "$2a$10$hash", "manager", "Ana", "Lima"),
			expect: &User{ID: 3, Email: "ana@resort.test", PasswordHash: "$2a$10$hash", Role: "manager", FirstName: "Ana", LastName: "Lima"},
		},
		{
			name:      "missing",
			rowErr:    pgx.ErrNoRows,
			expectErr: ErrUserNotFound,
		},
		{
			name:   "driver failure",
			rowErr: errors.New("conn reset"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			exp := mock.ExpectQuery("FROM users").WithArgs("ana@resort.test")
			if tc.rowErr != nil {
				exp.WillReturnError(tc.rowErr)
			} else {
				exp.WillReturnRows(tc.rows)
			}

			got, err := NewUsers(mock).GetByEmail(context.Background(), "ana@resort.test")
			switch {
			case tc.expect != nil:
				require.NoError(t, err)
				assert.Equal(t, tc.expect, got)
			case tc.expectErr != nil:
				assert.ErrorIs(t, err, tc.expectErr)
			default:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrUserNotFound)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
