package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/store"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// Tracker applies state transitions for one ingest record. The in-memory
// state always advances on a valid transition; a failed write to the store
// is logged and otherwise ignored.
type Tracker struct {
	store        store.IngestStore
	processingID string

	mu        sync.Mutex
	state     taxonomy.UploadState
	persistOK bool
}

// NewTracker creates a Tracker starting at initial. st may be nil, in which
// case transitions are tracked in memory only.
func NewTracker(st store.IngestStore, processingID string, initial taxonomy.UploadState) *Tracker {
	return &Tracker{store: st, processingID: processingID, state: initial, persistOK: true}
}

// State returns the current state.
func (t *Tracker) State() taxonomy.UploadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// PersistFailed reports whether any write to the store has failed.
func (t *Tracker) PersistFailed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.persistOK
}

// Transition moves to update.State. It returns ErrInvalidTransition when the
// edge is not allowed and leaves the state unchanged. Moving to the current
// state with nothing else to record writes nothing.
func (t *Tracker) Transition(ctx context.Context, update model.StateUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := CheckTransition(t.state, update.State); err != nil {
		zap.L().Warn("ingest: rejected transition",
			zap.String("processing_id", t.processingID),
			zap.String("from", string(t.state)),
			zap.String("to", string(update.State)),
		)
		return err
	}
	if t.state == update.State && update.JobOutcome == "" && update.FamilyID == "" && update.Error == "" {
		return nil
	}

	from := t.state
	t.state = update.State
	if t.store == nil {
		return nil
	}
	if err := t.store.UpdateState(ctx, t.processingID, update); err != nil {
		t.persistOK = false
		zap.L().Warn("ingest: failed to persist state",
			zap.String("processing_id", t.processingID),
			zap.String("from", string(from)),
			zap.String("to", string(update.State)),
			zap.Error(err),
		)
		return nil
	}
	zap.L().Debug("ingest: state updated",
		zap.String("processing_id", t.processingID),
		zap.String("from", string(from)),
		zap.String("to", string(update.State)),
	)
	return nil
}

// MoveTo is Transition with only a target state.
func (t *Tracker) MoveTo(ctx context.Context, to taxonomy.UploadState) error {
	return t.Transition(ctx, model.StateUpdate{State: to})
}
