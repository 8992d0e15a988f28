package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

var ingestCols = []string{
	"processing_id", "ingest_id", "owner_id", "original_name", "content_hash", "quick_hash",
	"upload_state", "job_outcome", "error", "error_code", "family_id", "created_at", "updated_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ingests`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetIngest(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT processing_id, .* FROM ingests WHERE processing_id = \$1`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(ingestCols).AddRow(
			"p1", "ing-1", "owner-a", "Inter.ttf", "h1", "q1",
			"completed", "success", "", "", "fam-1", now, now,
		))

	rec, err := s.GetIngest(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, taxonomy.StateCompleted, rec.UploadState)
	assert.Equal(t, taxonomy.OutcomeSuccess, rec.JobOutcome)
	assert.Equal(t, "fam-1", rec.FamilyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetIngest_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM ingests WHERE processing_id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetIngest(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByHash_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM ingests WHERE owner_id = \$1 AND content_hash = \$2`).
		WithArgs("owner-a", "h1").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.FindByHash(context.Background(), "owner-a", "h1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateState(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE ingests SET upload_state = \$1`).
		WithArgs("parsing", "", "", "", "", pgxmock.AnyArg(), "p1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateState(context.Background(), "p1", model.StateUpdate{State: taxonomy.StateParsing})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateState_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE ingests SET upload_state`).
		WithArgs("parsing", "", "", "", "", pgxmock.AnyArg(), "p1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateState(context.Background(), "p1", model.StateUpdate{State: taxonomy.StateParsing})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListIngests_BuildsFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`AND owner_id = \$1 AND upload_state = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("owner-a", "error", 10, 5).
		WillReturnRows(pgxmock.NewRows(ingestCols).AddRow(
			"p1", "ing-1", "owner-a", "x.otf", "h1", "q1",
			"error", "failed", "boom", "internal_error", "", now, now,
		))

	recs, err := s.ListIngests(context.Background(), IngestFilter{
		OwnerID: "owner-a", State: taxonomy.StateError, Limit: 10, Offset: 5,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "boom", recs[0].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResult_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`(?s)INSERT INTO results .* ON CONFLICT \(processing_id\) DO UPDATE`).
		WithArgs("p1", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveResult(context.Background(), &model.StoredResult{
		ProcessingID:  "p1",
		Authoritative: true,
		Result:        &model.PipelineResult{ProcessingID: "p1"},
		SavedAt:       time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TryIncrement_Granted(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO rate_limit_state .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs("inference").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`(?s)UPDATE rate_limit_state SET active_count = active_count \+ 1.*WHERE id = \$1 AND active_count < \$2 RETURNING active_count`).
		WithArgs("inference", 3).
		WillReturnRows(pgxmock.NewRows([]string{"active_count"}).AddRow(1))

	ok, err := s.TryIncrement(context.Background(), "inference", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TryIncrement_AtLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO rate_limit_state`).
		WithArgs("inference").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`UPDATE rate_limit_state`).
		WithArgs("inference", 3).
		WillReturnError(pgx.ErrNoRows)

	ok, err := s.TryIncrement(context.Background(), "inference", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TryIncrement_StorageError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO rate_limit_state`).
		WithArgs("inference").
		WillReturnError(errors.New("connection refused"))

	ok, err := s.TryIncrement(context.Background(), "inference", 3)
	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Decrement_Transactional(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT active_count FROM rate_limit_state WHERE id = \$1 FOR UPDATE`).
		WithArgs("inference").
		WillReturnRows(pgxmock.NewRows([]string{"active_count"}).AddRow(2))
	mock.ExpectExec(`UPDATE rate_limit_state SET active_count = \$2`).
		WithArgs("inference", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.Decrement(context.Background(), "inference"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Decrement_AtZeroSkipsUpdate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("inference").
		WillReturnRows(pgxmock.NewRows([]string{"active_count"}).AddRow(0))
	mock.ExpectCommit()

	require.NoError(t, s.Decrement(context.Background(), "inference"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ForceDecrement(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`GREATEST\(active_count - 1, 0\)`).
		WithArgs("inference").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.ForceDecrement(context.Background(), "inference"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCounter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT active_count, last_updated FROM rate_limit_state`).
		WithArgs("inference").
		WillReturnRows(pgxmock.NewRows([]string{"active_count", "last_updated"}).AddRow(2, now))

	st, err := s.Get(context.Background(), "inference")
	require.NoError(t, err)
	assert.Equal(t, 2, st.ActiveCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
