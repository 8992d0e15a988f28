package store

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleIngest(id, owner, hash string) *model.IngestRecord {
	now := time.Now().UTC()
	return &model.IngestRecord{
		IngestID:     "ing-" + id,
		OwnerID:      owner,
		ProcessingID: id,
		OriginalName: "Inter-Regular.ttf",
		ContentHash:  hash,
		QuickHash:    "q-" + hash,
		UploadState:  taxonomy.StateQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// --- Ingests ---

func TestSQLite_CreateAndGetIngest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateIngest(ctx, sampleIngest("p1", "owner-a", "h1")))

	got, err := st.GetIngest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", got.OwnerID)
	assert.Equal(t, "Inter-Regular.ttf", got.OriginalName)
	assert.Equal(t, taxonomy.StateQueued, got.UploadState)
	assert.Empty(t, got.JobOutcome)
}

func TestSQLite_GetIngest_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetIngest(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateState_KeepsUnsetFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateIngest(ctx, sampleIngest("p1", "owner-a", "h1")))

	require.NoError(t, st.UpdateState(ctx, "p1", model.StateUpdate{
		State:     taxonomy.StateError,
		Error:     "parse failed",
		ErrorCode: model.ErrorCodeParseFailed,
	}))
	require.NoError(t, st.UpdateState(ctx, "p1", model.StateUpdate{
		State:      taxonomy.StateError,
		JobOutcome: taxonomy.OutcomeFailed,
	}))

	got, err := st.GetIngest(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, taxonomy.StateError, got.UploadState)
	assert.Equal(t, taxonomy.OutcomeFailed, got.JobOutcome)
	assert.Equal(t, "parse failed", got.Error)
	assert.Equal(t, model.ErrorCodeParseFailed, got.ErrorCode)
}

func TestSQLite_UpdateState_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdateState(context.Background(), "missing", model.StateUpdate{State: taxonomy.StateParsing})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_FindByHash(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateIngest(ctx, sampleIngest("p1", "owner-a", "h1")))

	got, err := st.FindByHash(ctx, "owner-a", "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ProcessingID)

	none, err := st.FindByHash(ctx, "owner-b", "h1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQLite_ListIngests_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateIngest(ctx, sampleIngest("p1", "owner-a", "h1")))
	require.NoError(t, st.CreateIngest(ctx, sampleIngest("p2", "owner-a", "h2")))
	require.NoError(t, st.CreateIngest(ctx, sampleIngest("p3", "owner-b", "h3")))
	require.NoError(t, st.UpdateState(ctx, "p2", model.StateUpdate{State: taxonomy.StateCompleted}))

	byOwner, err := st.ListIngests(ctx, IngestFilter{OwnerID: "owner-a"})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	completed, err := st.ListIngests(ctx, IngestFilter{State: taxonomy.StateCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "p2", completed[0].ProcessingID)

	limited, err := st.ListIngests(ctx, IngestFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

// --- Results ---

func TestSQLite_SaveAndGetResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateIngest(ctx, sampleIngest("p1", "owner-a", "h1")))

	res := &model.StoredResult{
		ProcessingID:  "p1",
		Authoritative: false,
		Result:        &model.PipelineResult{ProcessingID: "p1", Confidence: 0.4, JobOutcome: taxonomy.OutcomePartial},
		SavedAt:       time.Now().UTC(),
	}
	require.NoError(t, st.SaveResult(ctx, res))

	res.Authoritative = true
	res.Result.Confidence = 0.9
	require.NoError(t, st.SaveResult(ctx, res))

	got, err := st.GetResult(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.Authoritative)
	assert.InDelta(t, 0.9, got.Result.Confidence, 1e-9)
	assert.Equal(t, taxonomy.OutcomePartial, got.Result.JobOutcome)

	_, err = st.GetResult(ctx, "p9")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Counter ---

func TestSQLite_Counter_TryIncrementRespectsLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ok, err := st.TryIncrement(ctx, "inference", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.TryIncrement(ctx, "inference", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.TryIncrement(ctx, "inference", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	state, err := st.Get(ctx, "inference")
	require.NoError(t, err)
	assert.Equal(t, 2, state.ActiveCount)
}

func TestSQLite_Counter_DecrementNeverNegative(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Decrement(ctx, "missing"))

	ok, err := st.TryIncrement(ctx, "inference", 1)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, st.Decrement(ctx, "inference"))
	require.NoError(t, st.Decrement(ctx, "inference"))
	require.NoError(t, st.ForceDecrement(ctx, "inference"))

	state, err := st.Get(ctx, "inference")
	require.NoError(t, err)
	assert.Equal(t, 0, state.ActiveCount)
}

func TestSQLite_Counter_GetMissingIsZero(t *testing.T) {
	st := newTestSQLiteStore(t)
	state, err := st.Get(context.Background(), "never")
	require.NoError(t, err)
	assert.Equal(t, 0, state.ActiveCount)
	assert.Equal(t, "never", state.Key)
}

func TestSQLite_Counter_ConcurrentIncrementsNeverExceedLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	const limit = 3
	var granted atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.TryIncrement(ctx, "inference", limit)
			if err == nil && ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(limit), granted.Load())
	state, err := st.Get(ctx, "inference")
	require.NoError(t, err)
	assert.Equal(t, limit, state.ActiveCount)
}
