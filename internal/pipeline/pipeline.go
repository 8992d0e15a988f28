// Package pipeline drives one font file through parsing, classification,
// enrichment, summary and validation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/config"
	"github.com/fontintel/fontintel/internal/fontparse"
	"github.com/fontintel/fontintel/internal/inference"
	"github.com/fontintel/fontintel/internal/ingest"
	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/reconcile"
	"github.com/fontintel/fontintel/internal/store"
	"github.com/fontintel/fontintel/internal/taxonomy"
	"github.com/fontintel/fontintel/internal/validate"
	"github.com/fontintel/fontintel/internal/webenrich"
)

// Stage names recorded on StageTiming and warnings.
const (
	StageParse         = "parse"
	StageVisualMetrics = "visual_metrics"
	StageVisual        = "visual_analysis"
	StageWeb           = "web_enrichment"
	StageEnriched      = "enriched_analysis"
	StageFallback      = "enriched_fallback"
	StageSummary       = "summary"
	StageValidation    = "validation"
	StagePersist       = "persist"
)

// WebEnricher looks up provenance facts for a parsed font.
type WebEnricher interface {
	Lookup(ctx context.Context, facts *model.ParsedFontFacts) (*model.WebFacts, error)
}

// Pipeline orchestrates one run per file. Runs share nothing but the
// admission counter behind the gateway.
type Pipeline struct {
	cfg        *config.Live
	results    store.IngestStore
	parser     fontparse.Parser
	gateway    *inference.Gateway
	enricher   WebEnricher
	reconciler *reconcile.Reconciler
	now        func() time.Time
}

// New creates a Pipeline. results and enricher may be nil; without an
// enricher the web stage is always skipped.
func New(cfg *config.Live, results store.IngestStore, parser fontparse.Parser, gw *inference.Gateway, enricher WebEnricher) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		results:    results,
		parser:     parser,
		gateway:    gw,
		enricher:   enricher,
		reconciler: reconcile.New(reconcile.DefaultOptions()),
		now:        time.Now,
	}
}

// run carries the state of one in-flight execution.
type run struct {
	ctx     context.Context
	job     ingest.Job
	tracker *ingest.Tracker
	res     *model.PipelineResult
	log     *zap.Logger
}

// stage times fn and records its status. fn returns one of the
// model.StageStatus values.
func (r *run) stage(name string, fn func() string) {
	start := time.Now()
	status := fn()
	duration := time.Since(start).Milliseconds()
	r.res.Stages = append(r.res.Stages, model.StageTiming{Stage: name, Status: status, DurationMs: duration})

	fields := []zap.Field{zap.String("stage", name), zap.String("status", status), zap.Int64("duration_ms", duration)}
	switch status {
	case model.StageStatusComplete, model.StageStatusSkipped:
		r.log.Info("pipeline: stage finished", fields...)
	case model.StageStatusFailed:
		r.log.Error("pipeline: stage failed", fields...)
	default:
		r.log.Warn("pipeline: stage degraded", fields...)
	}
}

func (r *run) move(to taxonomy.UploadState) {
	if err := r.tracker.MoveTo(r.ctx, to); err != nil {
		r.log.Warn("pipeline: state transition rejected", zap.Error(err))
	}
}

func (r *run) warn(tag taxonomy.WarningTag, stage, format string, args ...any) {
	r.res.AddWarning(tag, stage, fmt.Sprintf(format, args...))
}

// Run executes the pipeline for job. It never returns nil and never panics;
// every failure is recorded on the result.
func (p *Pipeline) Run(ctx context.Context, job ingest.Job) (res *model.PipelineResult) {
	res = &model.PipelineResult{
		ProcessingID: job.ProcessingID,
		Errors:       []string{},
		Warnings:     []model.Warning{},
	}
	tracker := job.Tracker
	if tracker == nil {
		tracker = ingest.NewTracker(nil, job.ProcessingID, taxonomy.StateQueued)
	}
	r := &run{
		ctx:     ctx,
		job:     job,
		tracker: tracker,
		res:     res,
		log:     zap.L().With(zap.String("processing_id", job.ProcessingID), zap.String("filename", job.Filename)),
	}
	r.log.Info("pipeline: starting run")

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("internal error: %v", rec)
			r.log.Error("pipeline: run panicked", zap.Any("panic", rec))
			res.AddError(msg)
			res.IsValid = false
			res.JobOutcome = taxonomy.OutcomeFailed
			if err := tracker.Transition(ctx, model.StateUpdate{
				State:      taxonomy.StateError,
				JobOutcome: taxonomy.OutcomeFailed,
				Error:      msg,
				ErrorCode:  model.ErrorCodeInternal,
			}); err != nil {
				r.log.Warn("pipeline: could not record panic state", zap.Error(err))
			}
			res.UploadState = tracker.State()
		}
	}()

	r.move(taxonomy.StateParsing)
	if !p.parse(r) {
		res.UploadState = tracker.State()
		return res
	}
	r.move(taxonomy.StateParsed)
	p.visualMetrics(r)

	r.move(taxonomy.StateAIClassifying)
	p.visualAnalysis(r)

	p.webEnrichment(r)
	p.enrichedAnalysis(r)
	r.move(taxonomy.StateEnriched)

	r.move(taxonomy.StateIndexing)
	p.summary(r)
	p.finalize(r)

	update := model.StateUpdate{State: taxonomy.StateCompleted, JobOutcome: res.JobOutcome}
	switch res.JobOutcome {
	case taxonomy.OutcomeSuccess:
		update.FamilyID = res.FamilyID
	case taxonomy.OutcomeFailed:
		update.State = taxonomy.StateFailed
		update.Error = strings.Join(res.Errors, "; ")
		update.ErrorCode = model.ErrorCodeAnalysisFailed
	}
	res.UploadState = update.State
	p.persist(r)

	if err := tracker.Transition(ctx, update); err != nil {
		r.log.Warn("pipeline: final transition rejected", zap.Error(err))
	}
	if tracker.PersistFailed() {
		r.warn(taxonomy.WarnPersistenceFailed, StagePersist, "one or more state updates could not be stored")
	}
	res.UploadState = tracker.State()

	r.log.Info("pipeline: run finished",
		zap.String("upload_state", string(res.UploadState)),
		zap.String("job_outcome", string(res.JobOutcome)),
		zap.Bool("is_valid", res.IsValid),
		zap.Float64("confidence", res.Confidence),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res
}

// stageContext bounds one inference stage by the configured timeout.
func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	secs := p.cfg.Current().Pipeline.StageTimeoutSecs
	if secs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(secs)*time.Second)
}

func thresholds(c config.ConfidenceConfig) validate.Thresholds {
	t := validate.Thresholds{Low: c.Low, Medium: c.Medium, High: c.High}
	if t.Validate() != nil {
		return validate.DefaultThresholds()
	}
	return t
}

// needsWeb reports whether the web stage should run for facts.
func (p *Pipeline) needsWeb(facts *model.ParsedFontFacts) bool {
	return p.enricher != nil && p.cfg.Current().Enrichment.Enabled && webenrich.Needed(facts)
}
