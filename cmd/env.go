package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/admission"
	"github.com/fontintel/fontintel/internal/config"
	"github.com/fontintel/fontintel/internal/db"
	"github.com/fontintel/fontintel/internal/fontparse"
	"github.com/fontintel/fontintel/internal/inference"
	"github.com/fontintel/fontintel/internal/ingest"
	"github.com/fontintel/fontintel/internal/pipeline"
	"github.com/fontintel/fontintel/internal/resilience"
	"github.com/fontintel/fontintel/internal/store"
	"github.com/fontintel/fontintel/internal/webenrich"
	anthropicpkg "github.com/fontintel/fontintel/pkg/anthropic"
	"github.com/fontintel/fontintel/pkg/perplexity"
)

// pipelineEnv holds the store, the pipeline and the intake service used by
// the process and serve commands.
type pipelineEnv struct {
	Store     store.Store
	Admission *admission.Controller
	Pipeline  *pipeline.Pipeline
	Service   *ingest.Service
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens and migrates the store, creates the API clients and
// builds the pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, l *config.Live) (*pipelineEnv, error) {
	cfg := l.Current()
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic key is required (FONTINTEL_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var px perplexity.Client
	if cfg.Enrichment.Enabled && cfg.Perplexity.Key != "" {
		px = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	} else if cfg.Enrichment.Enabled {
		zap.L().Warn("enrichment enabled without a perplexity key, web stage disabled")
	}

	return buildEnv(l, st, anthropicpkg.NewClient(cfg.Anthropic.Key), px), nil
}

// buildEnv wires the pipeline around already constructed dependencies. px may
// be nil, which disables the web stage.
func buildEnv(l *config.Live, st store.Store, ai anthropicpkg.Client, px perplexity.Client) *pipelineEnv {
	cfg := l.Current()

	ctrl := admission.New(st, func() int { return l.Current().Admission.Limit })
	ctrl.SetSchedule(admissionSchedule(cfg.Admission))

	retry := func() resilience.Options {
		r := l.Current().Retry
		return resilience.FromConfig(r.MaxAttempts, r.BaseDelayMs, r.MaxDelayMs)
	}

	gw := inference.NewGateway(ai, ctrl,
		inference.WithRetry(retry),
		inference.WithAdmissionWait(func() time.Duration {
			return time.Duration(l.Current().Admission.MaxWaitMs) * time.Millisecond
		}),
		inference.WithMaxTokens(cfg.Anthropic.MaxTokens),
		inference.WithTemperature(cfg.Anthropic.Temperature),
	)

	// A typed nil would defeat the pipeline's nil check.
	var enricher pipeline.WebEnricher
	var web *webenrich.Enricher
	if px != nil {
		web = webenrich.New(px,
			webenrich.WithModel(cfg.Perplexity.Model),
			webenrich.WithRateLimit(cfg.Perplexity.RatePerMinute),
			webenrich.WithRetry(retry),
		)
		enricher = web
	}
	l.Subscribe(applyReload(ctrl, web))

	p := pipeline.New(l, st, fontparse.NewSFNTParser(), gw, enricher)
	svc := ingest.NewService(st, p, func() int64 { return l.Current().Pipeline.MaxFileBytes })

	return &pipelineEnv{
		Store:     st,
		Admission: ctrl,
		Pipeline:  p,
		Service:   svc,
	}
}

// applyReload pushes settings that are fixed at construction into the running
// components when a new config snapshot is published. web may be nil.
func applyReload(ctrl *admission.Controller, web *webenrich.Enricher) func(*config.Config) {
	return func(cfg *config.Config) {
		ctrl.SetSchedule(admissionSchedule(cfg.Admission))
		if web != nil {
			web.Reconfigure(cfg.Perplexity.Model, cfg.Perplexity.RatePerMinute)
		}
		zap.L().Debug("config reload applied",
			zap.Int("admission_max_attempts", cfg.Admission.MaxAttempts),
			zap.Int("perplexity_rate_per_minute", cfg.Perplexity.RatePerMinute),
		)
	}
}

func admissionSchedule(ac config.AdmissionConfig) admission.Schedule {
	return admission.Schedule{
		MaxAttempts: ac.MaxAttempts,
		BaseWait:    time.Duration(ac.BaseWaitMs) * time.Millisecond,
		CapWait:     time.Duration(ac.CapWaitMs) * time.Millisecond,
	}
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "fontintel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &db.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
