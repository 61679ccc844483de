package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/store"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewWithPool(mock, "", "")
	require.NoError(t, err)
	return s, mock
}

func TestNewWithPoolValidatesTables(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "", "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "runs; DROP TABLE x", "")
	require.Error(t, err)

	s, err := NewWithPool(mock, "", "lto_records")
	require.NoError(t, err)
	assert.Equal(t, DefaultRunsTable, s.runs)
	assert.Equal(t, "lto_records", s.records)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sweep_runs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartAndFinishRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	runID := uuid.New()
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(3 * time.Minute)
	note := "1 cells failed: River Lot in Kildonan"

	mock.ExpectExec("INSERT INTO sweep_runs").
		WithArgs(runID, "12", started, store.RunRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE sweep_runs").
		WithArgs(finished, store.RunPartial, 42, &note, runID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.StartRun(context.Background(), runID, "12", started))
	require.NoError(t, s.FinishRun(context.Background(), runID, finished, store.RunPartial, 42, &note))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRunUnknown(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE sweep_runs").
		WithArgs(pgxmock.AnyArg(), store.RunSuccess, 0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), uuid.New(), time.Now(), store.RunSuccess, 0, nil)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	runID := uuid.New()
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(time.Minute)
	var noErr *string

	mock.ExpectQuery("SELECT id, lot_number").
		WithArgs(runID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "lot_number", "started_at", "finished_at", "status", "records", "error_message",
		}).AddRow(runID, "1-7", started, &finished, store.RunSuccess, 17, noErr))

	run, err := s.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "1-7", run.LotNumber)
	assert.Equal(t, store.RunSuccess, run.Status)
	assert.Equal(t, 17, run.Records)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, finished, *run.FinishedAt)
	assert.Nil(t, run.ErrorMessage)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	runID := uuid.New()
	mock.ExpectQuery("SELECT id, lot_number").WithArgs(runID).WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), runID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestUpsertRecords(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	run := store.RunRef{ID: uuid.New(), LotNumber: "12", StartedAt: time.Unix(1700000000, 0).UTC()}
	records := []plan.Record{
		{Deposit: "900", PlanNo: "10", District: "Winnipeg"},
		{Deposit: "DEP-3", Comments: "explanatory"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sweep_runs").
		WithArgs(run.ID, "12", run.StartedAt, store.RunRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	for _, r := range records {
		mock.ExpectExec("INSERT INTO plan_records").
			WithArgs(r.Deposit, run.ID, r.Lot, r.WNo, r.PlanNo, r.DosNo, r.ClsrNo, r.District, r.PlanType, r.Comments).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	n, err := s.UpsertRecords(context.Background(), run, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRecordsRollsBack(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	boom := errors.New("unique violation")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sweep_runs").
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO plan_records").
		WithArgs(anyArgs(10)...).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.UpsertRecords(context.Background(), store.RunRef{ID: uuid.New(), LotNumber: "1"}, []plan.Record{{Deposit: "1"}})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())

	n, err := s.UpsertRecords(context.Background(), store.RunRef{ID: uuid.New()}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsertRecordsRunRowFailureWritesNothing(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sweep_runs").
		WithArgs(anyArgs(4)...).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.UpsertRecords(context.Background(), store.RunRef{ID: uuid.New(), LotNumber: "1"}, []plan.Record{{Deposit: "1"}})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRecordsKeepsLongestCommentsWithinRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sweep_runs").
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`WHERE plan_records\.run_id <> EXCLUDED\.run_id OR octet_length\(EXCLUDED\.comments\) > octet_length\(plan_records\.comments\)`).
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	n, err := s.UpsertRecords(context.Background(), store.RunRef{ID: uuid.New(), LotNumber: "1"},
		[]plan.Record{{Deposit: "1", Comments: "short"}})
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertQueryFollowsMergePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		policy     string
		wantLength bool
	}{
		{name: "default", policy: "", wantLength: true},
		{name: "longest comments", policy: "longest_comments", wantLength: true},
		{name: "first seen", policy: "first_seen", wantLength: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			s, err := NewWithPool(mock, "", "", WithMergePolicy(tt.policy))
			require.NoError(t, err)
			q := s.upsertQuery()
			assert.Contains(t, q, "WHERE plan_records.run_id <> EXCLUDED.run_id")
			if tt.wantLength {
				assert.Contains(t, q, "octet_length(EXCLUDED.comments)")
			} else {
				assert.NotContains(t, q, "octet_length")
			}
		})
	}

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewWithPool(mock, "", "", WithMergePolicy("newest"))
	require.Error(t, err)
}
