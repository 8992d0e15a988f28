// Package ingest owns the lifecycle of an uploaded font file: the state
// machine its record moves through and the intake that creates it.
package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/fontintel/fontintel/internal/taxonomy"
)

// ErrInvalidTransition is returned for a state change the machine forbids.
var ErrInvalidTransition = eris.New("ingest: invalid transition")

// forward lists the allowed non-exit edges. Side exits to error, failed and
// quarantined are permitted from every non-terminal state.
var forward = map[taxonomy.UploadState][]taxonomy.UploadState{
	taxonomy.StateNotStarted:    {taxonomy.StateQueued},
	taxonomy.StateQueued:        {taxonomy.StateParsing},
	taxonomy.StateParsing:       {taxonomy.StateParsed},
	taxonomy.StateParsed:        {taxonomy.StateAIClassifying},
	taxonomy.StateAIClassifying: {taxonomy.StateAIRetrying, taxonomy.StateWebEnriching, taxonomy.StateEnriched},
	taxonomy.StateAIRetrying:    {taxonomy.StateWebEnriching, taxonomy.StateEnriched},
	taxonomy.StateWebEnriching:  {taxonomy.StateEnriched},
	taxonomy.StateEnriched:      {taxonomy.StateIndexing},
	taxonomy.StateIndexing:      {taxonomy.StateIndexed, taxonomy.StateCompleted},
}

func sideExit(s taxonomy.UploadState) bool {
	switch s {
	case taxonomy.StateError, taxonomy.StateFailed, taxonomy.StateQuarantined:
		return true
	}
	return false
}

// CanTransition reports whether from may move to to. A transition to the
// current state is always allowed and is a no-op. Terminal states are sticky.
func CanTransition(from, to taxonomy.UploadState) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if sideExit(to) {
		return true
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition returning an error naming both states.
func CheckTransition(from, to taxonomy.UploadState) error {
	if CanTransition(from, to) {
		return nil
	}
	return eris.Wrapf(ErrInvalidTransition, "ingest: %s -> %s", from, to)
}
