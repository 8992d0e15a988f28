package model

import "github.com/fontintel/fontintel/internal/taxonomy"

// Warning is a non-blocking observation raised during a run.
type Warning struct {
	Tag     taxonomy.WarningTag `json:"tag" yaml:"tag"`
	Stage   string              `json:"stage,omitempty" yaml:"stage,omitempty"`
	Message string              `json:"message" yaml:"message"`
}

// StageTiming records how long one stage took and how it ended.
type StageTiming struct {
	Stage      string `json:"stage" yaml:"stage"`
	Status     string `json:"status" yaml:"status"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

// Stage statuses recorded on StageTiming.
const (
	StageStatusComplete = "complete"
	StageStatusDegraded = "degraded"
	StageStatusSkipped  = "skipped"
	StageStatusFailed   = "failed"
)

// PipelineResult accumulates the output of one orchestrator run. It is owned
// by a single run and must be treated as read-only once returned.
type PipelineResult struct {
	ProcessingID     string                  `json:"processing_id" yaml:"processing_id"`
	ParsedData       *ParsedFontFacts        `json:"parsed_data,omitempty" yaml:"parsed_data,omitempty"`
	VisualMetrics    *VisualMetrics          `json:"visual_metrics,omitempty" yaml:"visual_metrics,omitempty"`
	VisualAnalysis   *Analysis               `json:"visual_analysis,omitempty" yaml:"visual_analysis,omitempty"`
	WebFacts         *WebFacts               `json:"web_facts,omitempty" yaml:"web_facts,omitempty"`
	MergedFacts      *MergedFacts            `json:"merged_facts,omitempty" yaml:"merged_facts,omitempty"`
	EnrichedAnalysis *Analysis               `json:"enriched_analysis,omitempty" yaml:"enriched_analysis,omitempty"`
	Description      string                  `json:"description,omitempty" yaml:"description,omitempty"`
	IsValid          bool                    `json:"is_valid" yaml:"is_valid"`
	Confidence       float64                 `json:"confidence" yaml:"confidence"`
	ConfidenceBand   taxonomy.ConfidenceBand `json:"confidence_band,omitempty" yaml:"confidence_band,omitempty"`
	FamilyID         string                  `json:"family_id,omitempty" yaml:"family_id,omitempty"`
	Errors           []string                `json:"errors" yaml:"errors"`
	Warnings         []Warning               `json:"warnings" yaml:"warnings"`
	UploadState      taxonomy.UploadState    `json:"upload_state" yaml:"upload_state"`
	JobOutcome       taxonomy.JobOutcome     `json:"job_outcome" yaml:"job_outcome"`
	Stages           []StageTiming           `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// FinalAnalysis returns the enriched analysis when present, otherwise the
// visual analysis. It returns nil when neither stage produced output.
func (r *PipelineResult) FinalAnalysis() *Analysis {
	if r.EnrichedAnalysis != nil {
		return r.EnrichedAnalysis
	}
	return r.VisualAnalysis
}

// AddWarning appends a warning to the result.
func (r *PipelineResult) AddWarning(tag taxonomy.WarningTag, stage, msg string) {
	r.Warnings = append(r.Warnings, Warning{Tag: tag, Stage: stage, Message: msg})
}

// AddError appends a blocking error message to the result.
func (r *PipelineResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// HasWarning reports whether a warning with tag was recorded.
func (r *PipelineResult) HasWarning(tag taxonomy.WarningTag) bool {
	for _, w := range r.Warnings {
		if w.Tag == tag {
			return true
		}
	}
	return false
}
