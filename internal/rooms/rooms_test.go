package rooms

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	typ  string
	data any
}

type fakeHub struct {
	events []event
	err    error
}

func (f *fakeHub) Broadcast(t string, data any) error {
	f.events = append(f.events, event{t, data})
	return f.err
}

var roomCols = []string{"id", "room_number", "room_type", "status", "price_per_night"}

func TestList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(listSQL)).WillReturnRows(pgxmock.NewRows(roomCols).
		AddRow(int64(1), "101", "standard", "available", 120.0).
		AddRow(int64(2), "102", "suite", "occupied", 340.0))

	out, err := NewService(mock, nil).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "suite", out[1].RoomType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	testCases := []struct {
		name       string
		status     string
		rowErr     error
		hubErr     error
		expectErr  error
		expectSent bool
	}{
		{name: "ok", status: "cleaning", expectSent: true},
		{name: "broadcast failure still succeeds", status: "maintenance", hubErr: errors.New("queue full"), expectSent: true},
		{name: "bad status", status: "haunted", expectErr: ErrInvalidStatus},
		{name: "unknown room", status: "available", rowErr: pgx.ErrNoRows, expectErr: ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			if tc.status != "haunted" {
				exp := mock.ExpectQuery(regexp.QuoteMeta(updateStatusSQL)).WithArgs(tc.status, int64(5))
				if tc.rowErr != nil {
					exp.WillReturnError(tc.rowErr)
				} else {
					exp.WillReturnRows(pgxmock.NewRows(roomCols).AddRow(int64(5), "105", "standard", tc.status, 120.0))
				}
			}

			hub := &fakeHub{err: tc.hubErr}
			got, err := NewService(mock, hub).UpdateStatus(context.Background(), 5, tc.status)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Empty(t, hub.events)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.status, got.Status)
			}
			if tc.expectSent {
				require.Len(t, hub.events, 1)
				assert.Equal(t, EventStatusChanged, hub.events[0].typ)
				assert.Equal(t, *got, hub.events[0].data)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
