// Package textrisk turns free text (news, analyst notes) into a structured
// risk verdict.
//
// Two paths exist. When an LLM is configured it is tried first under a timeout
// and a circuit breaker; any failure falls back to the local keyword and
// sentiment heuristic. Callers never see an LLM error.
package textrisk

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"geopulse/internal/screening/metrics"
)

const (
	defaultLLMTimeout = 10 * time.Second

	pathLLM          = "llm"
	pathHeuristic    = "heuristic"
	pathLLMFallback  = "llm_fallback"
	breakerFailures  = 3
	breakerOpenSleep = 30 * time.Second
)

var tracer = otel.Tracer("geopulse/screening/textrisk")

// Classifier selects between the LLM and heuristic paths.
type Classifier struct {
	heuristic *Heuristic
	llm       LLM
	breaker   *gobreaker.CircuitBreaker
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLLM enables the LLM path. A nil client leaves it disabled.
func WithLLM(llm LLM) Option {
	return func(c *Classifier) {
		if llm != nil {
			c.llm = llm
		}
	}
}

// WithTimeout bounds each LLM call.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Classifier) {
		c.metrics = m
	}
}

// New builds a classifier around the heuristic.
func New(h *Heuristic, opts ...Option) *Classifier {
	c := &Classifier{
		heuristic: h,
		timeout:   defaultLLMTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     breakerOpenSleep,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("llm circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// LLMEnabled reports whether the LLM path is configured.
func (c *Classifier) LLMEnabled() bool {
	return c.llm != nil
}

// Classify always returns a verdict. The numeric score and sentiment are
// computed locally on both paths; on the LLM path the model supplies level,
// keywords and summary.
func (c *Classifier) Classify(ctx context.Context, text string) Verdict {
	ctx, span := tracer.Start(ctx, "textrisk.Classify")
	defer span.End()

	local := c.heuristic.Classify(text)
	if c.llm == nil {
		c.metrics.IncrementClassification(pathHeuristic)
		span.SetAttributes(attribute.String("textrisk.path", pathHeuristic))
		return local
	}

	remote, err := c.classifyLLM(ctx, text)
	if err != nil {
		c.logger.WarnContext(ctx, "llm classification failed, using heuristic",
			"error", err,
		)
		c.metrics.IncrementClassification(pathLLMFallback)
		span.SetAttributes(attribute.String("textrisk.path", pathLLMFallback))
		return local
	}

	c.metrics.IncrementClassification(pathLLM)
	span.SetAttributes(attribute.String("textrisk.path", pathLLM))
	return merge(local, remote)
}

func (c *Classifier) classifyLLM(ctx context.Context, text string) (LLMVerdict, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		v, err := c.llm.Analyze(ctx, text)
		c.metrics.ObserveLLMLatency(time.Since(start))
		if err != nil {
			return nil, err
		}
		if _, ok := ParseLevel(v.RiskLevel); !ok {
			return nil, ErrMalformedVerdict
		}
		return v, nil
	})
	if err != nil {
		return LLMVerdict{}, err
	}
	return out.(LLMVerdict), nil
}

func merge(local Verdict, remote LLMVerdict) Verdict {
	level, _ := ParseLevel(remote.RiskLevel)
	keywords := remote.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	summary := remote.Summary
	if summary == "" {
		summary = local.Summary
	}
	return Verdict{
		Level:        level,
		Score:        local.Score,
		Keywords:     keywords,
		Summary:      summary,
		Sentiment:    local.Sentiment,
		Subjectivity: local.Subjectivity,
		Source:       SourceLLM,
	}
}
