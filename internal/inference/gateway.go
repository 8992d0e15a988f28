// Package inference issues classification and summary calls to the model
// service. Every call runs under an admission slot and the retry engine, and
// its output crosses the validation boundary before it is returned.
package inference

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/admission"
	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/resilience"
	"github.com/fontintel/fontintel/internal/validate"
	"github.com/fontintel/fontintel/pkg/anthropic"
)

// ErrSlotUnavailable is returned when no admission slot could be obtained.
var ErrSlotUnavailable = eris.New("inference: admission slot unavailable")

// Kind tags the variant held by an Outcome.
type Kind int

const (
	// KindOK carries a validated analysis or summary text.
	KindOK Kind = iota
	// KindSchemaError means the service answered but the output failed
	// validation.
	KindSchemaError
	// KindServiceError means the call itself failed after retries, or was
	// rejected on safety grounds.
	KindServiceError
	// KindSkipped means no admission slot was available.
	KindSkipped
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindSchemaError:
		return "schema_error"
	case KindServiceError:
		return "service_error"
	case KindSkipped:
		return "skipped"
	}
	return "unknown"
}

// Request is one classification or summary call.
type Request struct {
	Stage  string
	Model  string
	System string
	Prompt string
}

// Outcome is the tagged result of one call. Analysis is set only for KindOK
// classification outcomes, Text only for KindOK summaries.
type Outcome struct {
	Kind     Kind
	Analysis *model.Analysis
	Text     string
	Report   validate.Report
	Err      error
	Model    string
	Usage    anthropic.TokenUsage
}

// OK reports whether the outcome carries a usable value.
func (o Outcome) OK() bool { return o.Kind == KindOK }

// Recoverable reports whether a schema failure is worth retrying on a
// different model. Truncated invalid output is not.
func (o Outcome) Recoverable() bool {
	return o.Kind == KindSchemaError && !o.Report.Fatal
}

// Safety reports whether the service declined the request on safety grounds.
func (o Outcome) Safety() bool {
	return o.Err != nil && errors.Is(o.Err, resilience.ErrSafetyRejection)
}

// Gateway issues calls to the inference service.
type Gateway struct {
	client      anthropic.Client
	admission   *admission.Controller
	retry       func() resilience.Options
	maxWait     func() time.Duration
	maxTokens   int64
	temperature *float64
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRetry sets a provider for the retry options. It is read per call so
// configuration reloads take effect on the next stage.
func WithRetry(fn func() resilience.Options) Option {
	return func(g *Gateway) { g.retry = fn }
}

// WithAdmissionWait sets a provider for the maximum time to wait for a slot.
func WithAdmissionWait(fn func() time.Duration) Option {
	return func(g *Gateway) { g.maxWait = fn }
}

// WithMaxTokens sets the output token ceiling.
func WithMaxTokens(n int64) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Gateway) { g.temperature = &t }
}

// NewGateway creates a Gateway. ctrl may be nil, in which case calls are not
// admission-gated.
func NewGateway(client anthropic.Client, ctrl *admission.Controller, opts ...Option) *Gateway {
	g := &Gateway{
		client:    client,
		admission: ctrl,
		retry:     resilience.DefaultOptions,
		maxWait:   func() time.Duration { return 30 * time.Second },
		maxTokens: 2048,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Classify requests a classification and validates it.
func (g *Gateway) Classify(ctx context.Context, req Request) Outcome {
	if req.System == "" {
		req.System = ClassifySystem()
	}
	resp, out := g.invoke(ctx, req)
	if resp == nil {
		return out
	}

	text := validate.CleanJSON(resp.Text())
	raw, rep := validate.Parse([]byte(text), resp.Truncated())
	out.Report = rep
	if !rep.IsValid {
		out.Kind = KindSchemaError
		out.Err = eris.Errorf("inference: %s output failed validation: %s", req.Stage, strings.Join(rep.Errors, "; "))
		zap.L().Warn("inference: schema validation failed",
			zap.String("stage", req.Stage),
			zap.String("model", out.Model),
			zap.Strings("errors", rep.Errors),
			zap.Bool("fatal", rep.Fatal),
		)
		return out
	}

	out.Kind = KindOK
	out.Analysis = validate.Normalize(raw, out.Model)
	return out
}

// Summarize requests a plain-text description.
func (g *Gateway) Summarize(ctx context.Context, req Request) Outcome {
	if req.System == "" {
		req.System = SummarySystem()
	}
	resp, out := g.invoke(ctx, req)
	if resp == nil {
		return out
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		out.Kind = KindSchemaError
		out.Report = validate.Report{Errors: []string{"summary is empty"}}
		out.Err = eris.Errorf("inference: %s returned an empty summary", req.Stage)
		return out
	}
	out.Kind = KindOK
	out.Text = text
	return out
}

// invoke performs the gated, retried call. A nil response means out is final.
func (g *Gateway) invoke(ctx context.Context, req Request) (*anthropic.MessageResponse, Outcome) {
	out := Outcome{Model: req.Model}
	log := zap.L().With(zap.String("stage", req.Stage), zap.String("model", req.Model))

	resp, err := resilience.WithRetry(ctx, "inference."+req.Stage, g.retry(),
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return g.gatedCall(ctx, req)
		})

	switch {
	case errors.Is(err, ErrSlotUnavailable):
		log.Warn("inference: no admission slot, skipping stage")
		out.Kind = KindSkipped
		out.Err = err
		return nil, out
	case err != nil:
		log.Warn("inference: call failed", zap.Error(err))
		out.Kind = KindServiceError
		out.Err = err
		return nil, out
	}

	if resp.Model != "" {
		out.Model = resp.Model
	}
	out.Usage = resp.Usage
	resp.Usage.LogUsage(out.Model, req.Stage)
	return resp, out
}

func (g *Gateway) gatedCall(ctx context.Context, req Request) (*anthropic.MessageResponse, error) {
	if g.admission == nil {
		return g.call(ctx, req)
	}
	resp, ok, err := admission.Do(ctx, g.admission, g.maxWait(), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.call(ctx, req)
	})
	if !ok {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrSlotUnavailable
	}
	return resp, err
}

func (g *Gateway) call(ctx context.Context, req Request) (*anthropic.MessageResponse, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   g.maxTokens,
		System:      anthropic.CachedSystem(req.System),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: g.temperature,
	})
	if err != nil {
		if errors.Is(err, anthropic.ErrRefusal) {
			return nil, eris.Wrapf(resilience.ErrSafetyRejection, "inference: %s declined by %s", req.Stage, req.Model)
		}
		return nil, err
	}
	return resp, nil
}
