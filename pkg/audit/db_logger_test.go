package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockRecorder(t *testing.T) (*DBRecorder, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS login_audit").
		WillReturnResult(sqlmock.NewResult(0, 0))

	recorder, err := NewDBRecorder(db)
	require.NoError(t, err)
	return recorder, mock
}

func TestNewDBRecorder_RequiresConnection(t *testing.T) {
	_, err := NewDBRecorder(nil)
	assert.Error(t, err)
}

func TestDBRecorder_Record(t *testing.T) {
	recorder, mock := setupMockRecorder(t)

	rec := &Record{
		Timestamp:  time.Now().UTC(),
		Kind:       "federated",
		Provider:   "acme",
		Username:   "jdoe",
		Outcome:    OutcomeSuccess,
		RemoteAddr: "198.51.100.7:41234",
		RequestID:  "req-1",
	}

	mock.ExpectExec("INSERT INTO login_audit").
		WithArgs(rec.Timestamp, rec.Kind, rec.Provider, rec.Username,
			rec.Outcome, rec.Reason, rec.RemoteAddr, rec.RequestID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := recorder.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorder_RecordFailureOutcome(t *testing.T) {
	recorder, mock := setupMockRecorder(t)

	rec := &Record{
		Timestamp: time.Now().UTC(),
		Kind:      "preauth",
		Username:  "jdoe",
		Outcome:   OutcomeFailure,
		Reason:    "account pending approval",
	}

	mock.ExpectExec("INSERT INTO login_audit").
		WithArgs(rec.Timestamp, rec.Kind, rec.Provider, rec.Username,
			rec.Outcome, rec.Reason, rec.RemoteAddr, rec.RequestID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := recorder.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
