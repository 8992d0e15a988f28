// Package webenrich looks up provenance facts for a font family through a
// web-grounded search model.
package webenrich

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/resilience"
	"github.com/fontintel/fontintel/internal/validate"
	"github.com/fontintel/fontintel/pkg/perplexity"
)

const systemPrompt = `You research the provenance of typefaces. Answer only from sources you can cite. Respond with a single JSON object:
{"foundry": "<foundry or publisher>", "designer": "<designer names>", "release_year": "<YYYY>", "historical_context": "<one or two sentences>", "confidence": <0.0-1.0>, "citations": ["<url>"]}
Use an empty string for anything you cannot confirm.`

var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"foundry":            map[string]any{"type": "string"},
		"designer":           map[string]any{"type": "string"},
		"release_year":       map[string]any{"type": "string"},
		"historical_context": map[string]any{"type": "string"},
		"confidence":         map[string]any{"type": "number"},
		"citations":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"foundry", "designer", "confidence"},
}

// Enricher fetches web-sourced facts.
type Enricher struct {
	client  perplexity.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   func() resilience.Options

	mu    sync.RWMutex
	model string
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithModel overrides the search model.
func WithModel(m string) Option {
	return func(e *Enricher) {
		if m != "" {
			e.model = m
		}
	}
}

// WithRateLimit sets the sustained request rate per minute.
func WithRateLimit(perMinute int) Option {
	return func(e *Enricher) {
		if perMinute > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
		}
	}
}

// WithRetry sets a provider for the retry options.
func WithRetry(fn func() resilience.Options) Option {
	return func(e *Enricher) { e.retry = fn }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(e *Enricher) { e.breaker = b }
}

// New creates an Enricher with a 30 request/minute throttle and a breaker that
// opens after five consecutive transient failures.
func New(client perplexity.Client, opts ...Option) *Enricher {
	e := &Enricher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
		breaker: resilience.NewBreaker("webenrich", 5, time.Minute, nil),
		retry:   resilience.DefaultOptions,
		model:   "sonar",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reconfigure applies a reloaded search model and request rate. Zero values
// keep the current setting. Lookups already waiting on the limiter see the
// new rate immediately.
func (e *Enricher) Reconfigure(searchModel string, perMinute int) {
	if perMinute > 0 {
		e.limiter.SetLimit(rate.Limit(float64(perMinute) / 60))
	}
	if searchModel != "" {
		e.mu.Lock()
		e.model = searchModel
		e.mu.Unlock()
	}
}

func (e *Enricher) currentModel() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

// Needed reports whether the structural facts leave a provenance field open.
// The embedded description stands in for historical context.
func Needed(facts *model.ParsedFontFacts) bool {
	if facts == nil {
		return false
	}
	return strings.TrimSpace(facts.Foundry) == "" ||
		strings.TrimSpace(facts.Designer) == "" ||
		strings.TrimSpace(facts.Description) == ""
}

// Lookup queries the search model for the family described by facts.
func (e *Enricher) Lookup(ctx context.Context, facts *model.ParsedFontFacts) (*model.WebFacts, error) {
	if facts == nil || strings.TrimSpace(facts.FamilyName) == "" {
		return nil, eris.New("webenrich: family name is required")
	}

	req := perplexity.ChatCompletionRequest{
		Model: e.currentModel(),
		Messages: []perplexity.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query(facts)},
		},
		ResponseFormat: &perplexity.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &perplexity.JSONSchema{Schema: responseSchema},
		},
	}

	resp, err := resilience.WithRetry(ctx, "webenrich.lookup", e.retry(),
		func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
			return resilience.Call(ctx, e.breaker, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
				if err := e.limiter.Wait(ctx); err != nil {
					return nil, eris.Wrap(err, "webenrich: rate limit wait")
				}
				return e.client.ChatCompletion(ctx, req)
			})
		})
	if err != nil {
		return nil, eris.Wrapf(err, "webenrich: lookup %q", facts.FamilyName)
	}

	wf, err := parseFacts(resp.Content())
	if err != nil {
		return nil, err
	}
	wf.Citations = mergeCitations(resp.Citations, wf.Citations)

	zap.L().Info("webenrich: lookup complete",
		zap.String("family", facts.FamilyName),
		zap.Bool("foundry", wf.Foundry != ""),
		zap.Bool("designer", wf.Designer != ""),
		zap.Int("citations", len(wf.Citations)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return wf, nil
}

func query(f *model.ParsedFontFacts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Typeface family: %s\n", f.FamilyName)
	if f.Foundry != "" {
		fmt.Fprintf(&sb, "Manufacturer per font file: %s\n", f.Foundry)
	}
	if f.Designer != "" {
		fmt.Fprintf(&sb, "Designer per font file: %s\n", f.Designer)
	}
	if f.VendorURL != "" {
		fmt.Fprintf(&sb, "Vendor URL: %s\n", f.VendorURL)
	}
	if f.Copyright != "" {
		fmt.Fprintf(&sb, "Copyright: %s\n", f.Copyright)
	}
	sb.WriteString("Who published and designed it, when was it first released, and what is its historical background?")
	return sb.String()
}

// webAnswer accepts release_year as either a string or a number.
type webAnswer struct {
	Foundry           string          `json:"foundry"`
	Designer          string          `json:"designer"`
	ReleaseYear       json.RawMessage `json:"release_year"`
	HistoricalContext string          `json:"historical_context"`
	Confidence        float64         `json:"confidence"`
	Citations         []string        `json:"citations"`
}

func parseFacts(content string) (*model.WebFacts, error) {
	var ans webAnswer
	if err := json.Unmarshal([]byte(validate.CleanJSON(content)), &ans); err != nil {
		return nil, eris.Wrap(err, "webenrich: parse answer")
	}
	return &model.WebFacts{
		Foundry:           strings.TrimSpace(ans.Foundry),
		Designer:          strings.TrimSpace(ans.Designer),
		ReleaseYear:       yearString(ans.ReleaseYear),
		HistoricalContext: strings.TrimSpace(ans.HistoricalContext),
		Confidence:        math.Max(0, math.Min(1, ans.Confidence)),
		Citations:         ans.Citations,
	}, nil
}

func yearString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return strconv.Itoa(int(n))
	}
	return ""
}

func mergeCitations(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, c := range l {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
