// Package store persists ingest records, pipeline results and the shared
// admission counter.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = eris.New("store: not found")

// IngestFilter specifies criteria for listing ingest records.
type IngestFilter struct {
	OwnerID string               `json:"owner_id,omitempty"`
	State   taxonomy.UploadState `json:"state,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
}

// IngestStore persists ingest records and run results.
type IngestStore interface {
	CreateIngest(ctx context.Context, rec *model.IngestRecord) error
	GetIngest(ctx context.Context, processingID string) (*model.IngestRecord, error)
	// FindByHash returns the most recent record for owner with the given
	// content hash, or nil when there is none.
	FindByHash(ctx context.Context, ownerID, contentHash string) (*model.IngestRecord, error)
	UpdateState(ctx context.Context, processingID string, update model.StateUpdate) error
	ListIngests(ctx context.Context, filter IngestFilter) ([]model.IngestRecord, error)

	SaveResult(ctx context.Context, res *model.StoredResult) error
	GetResult(ctx context.Context, processingID string) (*model.StoredResult, error)

	Migrate(ctx context.Context) error
	Close() error
}

// CounterStore is a durable counter supporting an atomic conditional
// increment. Every method operates on the row identified by key.
type CounterStore interface {
	// TryIncrement adds one to the counter only if it is below limit, as a
	// single atomic step. It reports whether the increment happened.
	TryIncrement(ctx context.Context, key string, limit int) (bool, error)
	// Decrement subtracts one inside a transaction, never going below zero.
	Decrement(ctx context.Context, key string) error
	// ForceDecrement subtracts one without a transaction, clamped at zero.
	ForceDecrement(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*model.RateLimitState, error)
}

// Store combines IngestStore and CounterStore.
type Store interface {
	IngestStore
	CounterStore
}
