package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/store"
	storemocks "github.com/fontintel/fontintel/internal/store/mocks"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

func TestLoadStatus_WithoutResult(t *testing.T) {
	st := storemocks.NewMockStore(t)
	rec := &model.IngestRecord{ProcessingID: "p-1", UploadState: taxonomy.StateQuarantined}
	st.On("GetIngest", mock.Anything, "p-1").Return(rec, nil).Once()
	st.On("GetResult", mock.Anything, "p-1").Return(nil, store.ErrNotFound).Once()

	status, err := loadStatus(context.Background(), st, "p-1")
	require.NoError(t, err)
	assert.Equal(t, rec, status.Record)
	assert.Nil(t, status.Result)
	assert.False(t, status.Authoritative)
}

func TestLoadStatus_WithResult(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("GetIngest", mock.Anything, "p-1").Return(&model.IngestRecord{ProcessingID: "p-1"}, nil).Once()
	st.On("GetResult", mock.Anything, "p-1").Return(&model.StoredResult{
		ProcessingID:  "p-1",
		Authoritative: true,
		Result:        &model.PipelineResult{IsValid: true},
	}, nil).Once()

	status, err := loadStatus(context.Background(), st, "p-1")
	require.NoError(t, err)
	assert.True(t, status.Authoritative)
	require.NotNil(t, status.Result)
	assert.True(t, status.Result.IsValid)
}

func TestLoadStatus_Errors(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("GetIngest", mock.Anything, "missing").Return(nil, store.ErrNotFound).Once()
	_, err := loadStatus(context.Background(), st, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	st.On("GetIngest", mock.Anything, "p-2").Return(&model.IngestRecord{ProcessingID: "p-2"}, nil).Once()
	st.On("GetResult", mock.Anything, "p-2").Return(nil, errors.New("db down")).Once()
	_, err = loadStatus(context.Background(), st, "p-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
