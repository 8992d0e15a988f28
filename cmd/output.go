package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// fileReport is the per-file line printed by the process command.
type fileReport struct {
	File           string                  `json:"file" yaml:"file"`
	ProcessingID   string                  `json:"processing_id" yaml:"processing_id"`
	UploadState    taxonomy.UploadState    `json:"upload_state" yaml:"upload_state"`
	JobOutcome     taxonomy.JobOutcome     `json:"job_outcome,omitempty" yaml:"job_outcome,omitempty"`
	Duplicate      bool                    `json:"duplicate,omitempty" yaml:"duplicate,omitempty"`
	ErrorCode      string                  `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Error          string                  `json:"error,omitempty" yaml:"error,omitempty"`
	FamilyID       string                  `json:"family_id,omitempty" yaml:"family_id,omitempty"`
	IsValid        bool                    `json:"is_valid" yaml:"is_valid"`
	Confidence     float64                 `json:"confidence" yaml:"confidence"`
	ConfidenceBand taxonomy.ConfidenceBand `json:"confidence_band,omitempty" yaml:"confidence_band,omitempty"`
	Warnings       []model.Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors         []string                `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newFileReport(file string, rec *model.IngestRecord, duplicate bool, res *model.PipelineResult) fileReport {
	rep := fileReport{File: file, Duplicate: duplicate}
	if rec != nil {
		rep.ProcessingID = rec.ProcessingID
		rep.UploadState = rec.UploadState
		rep.JobOutcome = rec.JobOutcome
		rep.ErrorCode = rec.ErrorCode
		rep.Error = rec.Error
		rep.FamilyID = rec.FamilyID
	}
	if res != nil {
		rep.IsValid = res.IsValid
		rep.Confidence = res.Confidence
		rep.ConfidenceBand = res.ConfidenceBand
		rep.Warnings = res.Warnings
		rep.Errors = res.Errors
	}
	return rep
}

// writeOutput encodes v as json or yaml.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}
