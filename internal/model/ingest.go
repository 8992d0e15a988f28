package model

import (
	"time"

	"github.com/fontintel/fontintel/internal/taxonomy"
)

// Error codes stored on IngestRecord.ErrorCode.
const (
	ErrorCodeParseFailed    = "parse_failed"
	ErrorCodeTooLarge       = "file_too_large"
	ErrorCodeEmptyFile      = "empty_file"
	ErrorCodeInternal       = "internal_error"
	ErrorCodeAnalysisFailed = "analysis_failed"
)

// IngestRecord is the durable record of one uploaded file, keyed by
// ProcessingID. Only the orchestrator's state transitions mutate it.
type IngestRecord struct {
	IngestID     string               `json:"ingest_id" yaml:"ingest_id"`
	OwnerID      string               `json:"owner_id" yaml:"owner_id"`
	ProcessingID string               `json:"processing_id" yaml:"processing_id"`
	OriginalName string               `json:"original_name" yaml:"original_name"`
	ContentHash  string               `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
	QuickHash    string               `json:"quick_hash,omitempty" yaml:"quick_hash,omitempty"`
	UploadState  taxonomy.UploadState `json:"upload_state" yaml:"upload_state"`
	JobOutcome   taxonomy.JobOutcome  `json:"job_outcome,omitempty" yaml:"job_outcome,omitempty"`
	Error        string               `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode    string               `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	FamilyID     string               `json:"family_id,omitempty" yaml:"family_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" yaml:"updated_at"`
}

// StateUpdate is one transition written to an IngestRecord. Empty optional
// fields leave the stored value untouched.
type StateUpdate struct {
	State      taxonomy.UploadState
	JobOutcome taxonomy.JobOutcome
	Error      string
	ErrorCode  string
	FamilyID   string
}

// StoredResult is the persisted form of a finished pipeline run.
// Authoritative is false when validation failed.
type StoredResult struct {
	ProcessingID  string          `json:"processing_id"`
	Authoritative bool            `json:"authoritative"`
	Result        *PipelineResult `json:"result"`
	SavedAt       time.Time       `json:"saved_at"`
}

// RateLimitState is the single shared admission counter.
type RateLimitState struct {
	Key         string    `json:"key"`
	ActiveCount int       `json:"active_count"`
	LastUpdated time.Time `json:"last_updated"`
}
