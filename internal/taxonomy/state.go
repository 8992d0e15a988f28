package taxonomy

// UploadState is the persisted lifecycle state of one ingest.
type UploadState string

const (
	StateNotStarted    UploadState = "not_started"
	StateQueued        UploadState = "queued"
	StateParsing       UploadState = "parsing"
	StateParsed        UploadState = "parsed"
	StateAIClassifying UploadState = "ai_classifying"
	StateAIRetrying    UploadState = "ai_retrying"
	StateWebEnriching  UploadState = "web_enriching"
	StateEnriched      UploadState = "enriched"
	StateIndexing      UploadState = "indexing"
	StateIndexed       UploadState = "indexed"
	StateCompleted     UploadState = "completed"
	StateQuarantined   UploadState = "quarantined"
	StateFailed        UploadState = "failed"
	StateError         UploadState = "error"
)

var uploadStates = map[UploadState]struct{}{
	StateNotStarted: {}, StateQueued: {}, StateParsing: {}, StateParsed: {},
	StateAIClassifying: {}, StateAIRetrying: {}, StateWebEnriching: {},
	StateEnriched: {}, StateIndexing: {}, StateIndexed: {}, StateCompleted: {},
	StateQuarantined: {}, StateFailed: {}, StateError: {},
}

// Valid reports whether s is a known upload state.
func (s UploadState) Valid() bool {
	_, ok := uploadStates[s]
	return ok
}

// Terminal reports whether no further transitions are allowed out of s.
func (s UploadState) Terminal() bool {
	switch s {
	case StateCompleted, StateIndexed, StateQuarantined, StateFailed, StateError:
		return true
	}
	return false
}

// JobOutcome is the final verdict of a pipeline run.
type JobOutcome string

const (
	OutcomeSuccess          JobOutcome = "success"
	OutcomePartial          JobOutcome = "partial"
	OutcomeFailed           JobOutcome = "failed"
	OutcomeSkippedDuplicate JobOutcome = "skipped_duplicate"
)

// Valid reports whether o is a known job outcome.
func (o JobOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomePartial, OutcomeFailed, OutcomeSkippedDuplicate:
		return true
	}
	return false
}
