// Package mocks provides test doubles for the store package.
package mocks

import (
	"context"

	model "github.com/fontintel/fontintel/internal/model"
	store "github.com/fontintel/fontintel/internal/store"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// CreateIngest provides a mock function with given fields: ctx, rec
func (_m *MockStore) CreateIngest(ctx context.Context, rec *model.IngestRecord) error {
	ret := _m.Called(ctx, rec)

	if len(ret) == 0 {
		panic("no return value specified for CreateIngest")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.IngestRecord) error); ok {
		return rf(ctx, rec)
	}
	return ret.Error(0)
}

// GetIngest provides a mock function with given fields: ctx, processingID
func (_m *MockStore) GetIngest(ctx context.Context, processingID string) (*model.IngestRecord, error) {
	ret := _m.Called(ctx, processingID)

	if len(ret) == 0 {
		panic("no return value specified for GetIngest")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.IngestRecord, error)); ok {
		return rf(ctx, processingID)
	}
	var r0 *model.IngestRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.IngestRecord)
	}
	return r0, ret.Error(1)
}

// FindByHash provides a mock function with given fields: ctx, ownerID, contentHash
func (_m *MockStore) FindByHash(ctx context.Context, ownerID string, contentHash string) (*model.IngestRecord, error) {
	ret := _m.Called(ctx, ownerID, contentHash)

	if len(ret) == 0 {
		panic("no return value specified for FindByHash")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*model.IngestRecord, error)); ok {
		return rf(ctx, ownerID, contentHash)
	}
	var r0 *model.IngestRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.IngestRecord)
	}
	return r0, ret.Error(1)
}

// UpdateState provides a mock function with given fields: ctx, processingID, update
func (_m *MockStore) UpdateState(ctx context.Context, processingID string, update model.StateUpdate) error {
	ret := _m.Called(ctx, processingID, update)

	if len(ret) == 0 {
		panic("no return value specified for UpdateState")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, model.StateUpdate) error); ok {
		return rf(ctx, processingID, update)
	}
	return ret.Error(0)
}

// ListIngests provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListIngests(ctx context.Context, filter store.IngestFilter) ([]model.IngestRecord, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListIngests")
	}

	if rf, ok := ret.Get(0).(func(context.Context, store.IngestFilter) ([]model.IngestRecord, error)); ok {
		return rf(ctx, filter)
	}
	var r0 []model.IngestRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.IngestRecord)
	}
	return r0, ret.Error(1)
}

// SaveResult provides a mock function with given fields: ctx, res
func (_m *MockStore) SaveResult(ctx context.Context, res *model.StoredResult) error {
	ret := _m.Called(ctx, res)

	if len(ret) == 0 {
		panic("no return value specified for SaveResult")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.StoredResult) error); ok {
		return rf(ctx, res)
	}
	return ret.Error(0)
}

// GetResult provides a mock function with given fields: ctx, processingID
func (_m *MockStore) GetResult(ctx context.Context, processingID string) (*model.StoredResult, error) {
	ret := _m.Called(ctx, processingID)

	if len(ret) == 0 {
		panic("no return value specified for GetResult")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.StoredResult, error)); ok {
		return rf(ctx, processingID)
	}
	var r0 *model.StoredResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.StoredResult)
	}
	return r0, ret.Error(1)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	return ret.Error(0)
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	return ret.Error(0)
}

// TryIncrement provides a mock function with given fields: ctx, key, limit
func (_m *MockStore) TryIncrement(ctx context.Context, key string, limit int) (bool, error) {
	ret := _m.Called(ctx, key, limit)

	if len(ret) == 0 {
		panic("no return value specified for TryIncrement")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, int) (bool, error)); ok {
		return rf(ctx, key, limit)
	}
	return ret.Bool(0), ret.Error(1)
}

// Decrement provides a mock function with given fields: ctx, key
func (_m *MockStore) Decrement(ctx context.Context, key string) error {
	ret := _m.Called(ctx, key)

	if len(ret) == 0 {
		panic("no return value specified for Decrement")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		return rf(ctx, key)
	}
	return ret.Error(0)
}

// ForceDecrement provides a mock function with given fields: ctx, key
func (_m *MockStore) ForceDecrement(ctx context.Context, key string) error {
	ret := _m.Called(ctx, key)

	if len(ret) == 0 {
		panic("no return value specified for ForceDecrement")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		return rf(ctx, key)
	}
	return ret.Error(0)
}

// Get provides a mock function with given fields: ctx, key
func (_m *MockStore) Get(ctx context.Context, key string) (*model.RateLimitState, error) {
	ret := _m.Called(ctx, key)

	if len(ret) == 0 {
		panic("no return value specified for Get")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.RateLimitState, error)); ok {
		return rf(ctx, key)
	}
	var r0 *model.RateLimitState
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.RateLimitState)
	}
	return r0, ret.Error(1)
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
