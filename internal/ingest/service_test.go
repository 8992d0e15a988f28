package ingest

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/store"
	"github.com/fontintel/fontintel/internal/store/mocks"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// completingRunner walks the tracker to completed.
type completingRunner struct {
	calls int
}

func (r *completingRunner) Run(ctx context.Context, job Job) *model.PipelineResult {
	r.calls++
	for _, s := range []taxonomy.UploadState{
		taxonomy.StateParsing, taxonomy.StateParsed, taxonomy.StateAIClassifying,
		taxonomy.StateEnriched, taxonomy.StateIndexing,
	} {
		_ = job.Tracker.MoveTo(ctx, s)
	}
	_ = job.Tracker.Transition(ctx, model.StateUpdate{State: taxonomy.StateCompleted, JobOutcome: taxonomy.OutcomeSuccess})
	return &model.PipelineResult{
		ProcessingID: job.ProcessingID,
		UploadState:  job.Tracker.State(),
		JobOutcome:   taxonomy.OutcomeSuccess,
		FamilyID:     "fam-1",
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSubmit_RunsAndDeduplicates(t *testing.T) {
	st := newTestStore(t)
	runner := &completingRunner{}
	svc := NewService(st, runner, nil)
	ctx := context.Background()
	sub := Submission{Owner: "owner-a", Filename: "Go-Regular.ttf", Data: []byte("font bytes")}

	first, err := svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	require.NotNil(t, first.Result)
	assert.Equal(t, taxonomy.StateCompleted, first.Record.UploadState)
	assert.Equal(t, 1, runner.calls)

	stored, err := st.GetIngest(ctx, first.Record.ProcessingID)
	require.NoError(t, err)
	assert.Equal(t, taxonomy.StateCompleted, stored.UploadState)
	assert.Equal(t, taxonomy.OutcomeSuccess, stored.JobOutcome)
	assert.Equal(t, ContentHash(sub.Data), stored.ContentHash)

	second, err := svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, taxonomy.OutcomeSkippedDuplicate, second.Record.JobOutcome)
	assert.Equal(t, first.Record.ProcessingID, second.Record.ProcessingID)
	assert.Nil(t, second.Result)
	assert.Equal(t, 1, runner.calls)

	other, err := svc.Submit(ctx, Submission{Owner: "owner-b", Filename: sub.Filename, Data: sub.Data})
	require.NoError(t, err)
	assert.False(t, other.Duplicate)
	assert.Equal(t, 2, runner.calls)
}

func TestSubmit_Quarantine(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantCode string
	}{
		{name: "empty", data: nil, wantCode: model.ErrorCodeEmptyFile},
		{name: "oversize", data: bytes.Repeat([]byte{1}, 33), wantCode: model.ErrorCodeTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			runner := &completingRunner{}
			svc := NewService(st, runner, func() int64 { return 32 })

			rec, err := svc.Submit(context.Background(), Submission{Owner: "o", Filename: "f.ttf", Data: tt.data})
			require.NoError(t, err)
			assert.False(t, rec.Runnable())
			assert.Equal(t, taxonomy.StateQuarantined, rec.Record.UploadState)
			assert.Equal(t, tt.wantCode, rec.Record.ErrorCode)
			assert.Zero(t, runner.calls)

			stored, err := st.GetIngest(context.Background(), rec.Record.ProcessingID)
			require.NoError(t, err)
			assert.Equal(t, taxonomy.StateQuarantined, stored.UploadState)
		})
	}
}

func TestAccept_PersistenceFailureStillRuns(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("FindByHash", mock.Anything, "o", mock.Anything).Return(nil, errors.New("db down")).Once()
	st.On("CreateIngest", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	st.On("UpdateState", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

	runner := &completingRunner{}
	rec, err := NewService(st, runner, nil).Submit(context.Background(),
		Submission{Owner: "o", Filename: "f.ttf", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, taxonomy.StateCompleted, rec.Record.UploadState)
}

func TestAccept_Validation(t *testing.T) {
	svc := NewService(nil, &completingRunner{}, nil)
	_, err := svc.Accept(context.Background(), Submission{Filename: "f.ttf"})
	assert.ErrorContains(t, err, "owner")
	_, err = svc.Accept(context.Background(), Submission{Owner: "o"})
	assert.ErrorContains(t, err, "filename")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Accept(ctx, Submission{Owner: "o", Filename: "f.ttf"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuickHash(t *testing.T) {
	small := []byte("abc")
	assert.Equal(t, QuickHash(small), QuickHash([]byte("abc")))
	assert.NotEqual(t, QuickHash(small), QuickHash([]byte("abd")))

	big := bytes.Repeat([]byte{7}, 3*quickHashWindow)
	changedMiddle := bytes.Clone(big)
	changedMiddle[len(big)/2] = 8
	assert.Equal(t, QuickHash(big), QuickHash(changedMiddle))
	assert.NotEqual(t, ContentHash(big), ContentHash(changedMiddle))

	changedTail := bytes.Clone(big)
	changedTail[len(big)-1] = 8
	assert.NotEqual(t, QuickHash(big), QuickHash(changedTail))
}
