package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/fontparse"
	"github.com/fontintel/fontintel/internal/inference"
	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/taxonomy"
	"github.com/fontintel/fontintel/internal/validate"
)

// parse is the only terminal stage: a failure moves the record to error and
// ends the run without any inference call.
func (p *Pipeline) parse(r *run) bool {
	ok := true
	r.stage(StageParse, func() string {
		facts, err := p.parser.Parse(r.job.Data, r.job.Filename)
		if err == nil && facts == nil {
			err = eris.Wrapf(fontparse.ErrParse, "no facts extracted from %s", r.job.Filename)
		}
		if err != nil {
			ok = false
			msg := "parse: " + err.Error()
			r.res.AddError(msg)
			r.res.IsValid = false
			r.res.JobOutcome = taxonomy.OutcomeFailed
			if terr := r.tracker.Transition(r.ctx, model.StateUpdate{
				State:      taxonomy.StateError,
				JobOutcome: taxonomy.OutcomeFailed,
				Error:      msg,
				ErrorCode:  model.ErrorCodeParseFailed,
			}); terr != nil {
				r.log.Warn("pipeline: state transition rejected", zap.Error(terr))
			}
			return model.StageStatusFailed
		}
		r.res.ParsedData = facts
		return model.StageStatusComplete
	})
	return ok
}

func (p *Pipeline) visualMetrics(r *run) {
	r.stage(StageVisualMetrics, func() string {
		vm, err := fontparse.DeriveVisualMetrics(r.res.ParsedData)
		if err != nil {
			r.warn(taxonomy.WarnVisualMetricsUnavailable, StageVisualMetrics, "%v", err)
			return model.StageStatusDegraded
		}
		r.res.VisualMetrics = vm
		return model.StageStatusComplete
	})
}

func (p *Pipeline) visualAnalysis(r *run) {
	r.stage(StageVisual, func() string {
		ctx, cancel := p.stageContext(r.ctx)
		defer cancel()

		out := p.gateway.Classify(ctx, inference.Request{
			Stage:  StageVisual,
			Model:  p.cfg.Current().Models.Visual,
			Prompt: inference.VisualPrompt(r.res.ParsedData, r.res.VisualMetrics),
		})
		r.res.Warnings = append(r.res.Warnings, out.Report.Warnings...)
		if out.OK() {
			r.res.VisualAnalysis = out.Analysis
			return model.StageStatusComplete
		}

		r.move(taxonomy.StateAIRetrying)
		if out.Kind == inference.KindSkipped {
			r.warn(taxonomy.WarnAdmissionDenied, StageVisual, "no inference slot available")
			return model.StageStatusSkipped
		}
		r.warn(taxonomy.WarnVisualAnalysisUnavailable, StageVisual, "%s: %v", out.Kind, out.Err)
		return model.StageStatusDegraded
	})
}

// webEnrichment runs the web lookup when enabled and needed, then reconciles
// whatever is available. Reconciliation always runs so extracted facts carry
// provenance even without web data.
func (p *Pipeline) webEnrichment(r *run) {
	var web *model.WebFacts
	if !p.needsWeb(r.res.ParsedData) {
		r.res.Stages = append(r.res.Stages, model.StageTiming{Stage: StageWeb, Status: model.StageStatusSkipped})
	} else {
		r.move(taxonomy.StateWebEnriching)
		r.stage(StageWeb, func() string {
			ctx, cancel := p.stageContext(r.ctx)
			defer cancel()

			wf, err := p.enricher.Lookup(ctx, r.res.ParsedData)
			if err != nil {
				r.warn(taxonomy.WarnWebEnrichmentFailed, StageWeb, "%v", err)
				return model.StageStatusDegraded
			}
			web = wf
			r.res.WebFacts = wf
			return model.StageStatusComplete
		})
	}

	merged := p.reconciler.Reconcile(r.res.ParsedData, web)
	for _, c := range merged.Contradictions {
		r.warn(taxonomy.WarnFactContradiction, StageWeb, "%s", c)
	}
	r.res.MergedFacts = merged
}

// enrichedAnalysis makes the primary enriched call and, on a recoverable
// schema failure only, exactly one call to the fallback model.
func (p *Pipeline) enrichedAnalysis(r *run) {
	cfg := p.cfg.Current()
	prompt := inference.EnrichedPrompt(r.res.ParsedData, r.res.VisualMetrics, r.res.MergedFacts, r.res.VisualAnalysis)

	var out inference.Outcome
	r.stage(StageEnriched, func() string {
		ctx, cancel := p.stageContext(r.ctx)
		defer cancel()

		out = p.gateway.Classify(ctx, inference.Request{Stage: StageEnriched, Model: cfg.Models.Enriched, Prompt: prompt})
		if out.OK() {
			return model.StageStatusComplete
		}
		if out.Kind == inference.KindSkipped {
			return model.StageStatusSkipped
		}
		return model.StageStatusDegraded
	})

	if out.Recoverable() {
		primaryErrs := strings.Join(out.Report.Errors, "; ")
		r.stage(StageFallback, func() string {
			ctx, cancel := p.stageContext(r.ctx)
			defer cancel()

			out = p.gateway.Classify(ctx, inference.Request{Stage: StageFallback, Model: cfg.Models.Fallback, Prompt: prompt})
			if out.OK() {
				r.warn(taxonomy.WarnEnrichedFallbackUsed, StageEnriched, "primary model output invalid: %s", primaryErrs)
				return model.StageStatusComplete
			}
			return model.StageStatusFailed
		})
	}

	r.res.Warnings = append(r.res.Warnings, out.Report.Warnings...)
	if out.OK() {
		r.res.EnrichedAnalysis = out.Analysis
		return
	}

	switch out.Kind {
	case inference.KindSkipped:
		r.warn(taxonomy.WarnAdmissionDenied, StageEnriched, "no inference slot available")
	default:
		r.warn(taxonomy.WarnEnrichedUnavailable, StageEnriched, "%s: %v", out.Kind, out.Err)
	}
	if len(out.Report.Errors) > 0 {
		r.res.AddError("enriched analysis invalid: " + strings.Join(out.Report.Errors, "; "))
	} else {
		r.res.AddError("enriched analysis unavailable")
	}
}

func (p *Pipeline) summary(r *run) {
	final := r.res.FinalAnalysis()
	if final == nil {
		r.res.Stages = append(r.res.Stages, model.StageTiming{Stage: StageSummary, Status: model.StageStatusSkipped})
		r.warn(taxonomy.WarnSummaryUnavailable, StageSummary, "no analysis to summarize")
		return
	}
	r.stage(StageSummary, func() string {
		ctx, cancel := p.stageContext(r.ctx)
		defer cancel()

		out := p.gateway.Summarize(ctx, inference.Request{
			Stage:  StageSummary,
			Model:  p.cfg.Current().Models.Summary,
			Prompt: inference.SummaryPrompt(r.res.ParsedData, final, r.res.MergedFacts),
		})
		if !out.OK() {
			r.warn(taxonomy.WarnSummaryUnavailable, StageSummary, "%s: %v", out.Kind, out.Err)
			if out.Kind == inference.KindSkipped {
				return model.StageStatusSkipped
			}
			return model.StageStatusDegraded
		}
		r.res.Description = out.Text
		return model.StageStatusComplete
	})
}

// finalize applies sanity rules, aggregates confidence and decides the
// outcome. Only a validated enriched analysis makes the run valid.
func (p *Pipeline) finalize(r *run) {
	r.stage(StageValidation, func() string {
		final := r.res.FinalAnalysis()
		if final == nil {
			r.res.AddError("no analysis produced")
			r.res.IsValid = false
			r.res.JobOutcome = taxonomy.OutcomeFailed
			return model.StageStatusFailed
		}

		if final.HistoricalContext == "" && r.res.MergedFacts.HistoricalContext.Present() {
			final.HistoricalContext = r.res.MergedFacts.HistoricalContext.Value
		}
		r.res.Warnings = append(r.res.Warnings, validate.ApplySanityRules(r.res.ParsedData, final)...)
		r.res.Confidence = validate.CalculateConfidence(final)
		r.res.ConfidenceBand = validate.Band(r.res.Confidence, thresholds(p.cfg.Current().Confidence))

		r.res.IsValid = r.res.EnrichedAnalysis != nil
		if r.res.IsValid {
			r.res.JobOutcome = taxonomy.OutcomeSuccess
			r.res.FamilyID = FamilyID(r.res.ParsedData, r.res.MergedFacts)
			return model.StageStatusComplete
		}
		r.res.JobOutcome = taxonomy.OutcomePartial
		return model.StageStatusDegraded
	})
}

// persist stores the result. Invalid results are stored as non-authoritative.
func (p *Pipeline) persist(r *run) {
	if p.results == nil {
		return
	}
	r.stage(StagePersist, func() string {
		err := p.results.SaveResult(r.ctx, &model.StoredResult{
			ProcessingID:  r.res.ProcessingID,
			Authoritative: r.res.IsValid,
			Result:        r.res,
			SavedAt:       p.now().UTC(),
		})
		if err != nil {
			r.warn(taxonomy.WarnPersistenceFailed, StagePersist, "%v", err)
			return model.StageStatusDegraded
		}
		return model.StageStatusComplete
	})
}
