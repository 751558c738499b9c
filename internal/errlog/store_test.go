package errlog

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO error_logs").
		WithArgs("error", "api_rate_limit", "quota exceeded", "session-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStoreWithDB(mock)
	err = store.Record(context.Background(), "error", "api_rate_limit", "quota exceeded", "session-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRecordEmptySessionID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO error_logs").
		WithArgs("error", "general_error", "boom", nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStoreWithDB(mock)
	require.NoError(t, store.Record(context.Background(), "error", "general_error", "boom", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRecordDatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO error_logs").
		WillReturnError(errors.New("connection reset"))

	store := NewStoreWithDB(mock)
	err = store.Record(context.Background(), "error", "general_error", "boom", "s")
	assert.ErrorContains(t, err, "insert failed")
}
