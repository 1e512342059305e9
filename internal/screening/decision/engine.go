// Package decision combines the sanctions matcher and the country scorer into
// a BLOCKED or CLEARED outcome.
package decision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"geopulse/internal/screening/metrics"
	"geopulse/internal/screening/policy"
	"geopulse/internal/screening/sanctions"
)

var tracer = otel.Tracer("geopulse/screening/decision")

// Matcher screens a name and country against the sanctions data.
type Matcher interface {
	Match(name, countryCode string) sanctions.Result
}

// Scorer produces a 0..100 country risk score.
type Scorer interface {
	Score(countryCode, entityName string) float64
}

// Engine is stateless apart from its immutable collaborators and is safe for
// concurrent use.
type Engine struct {
	matcher        Matcher
	scorer         Scorer
	blockThreshold float64
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine. matcher and scorer are required.
func New(matcher Matcher, scorer Scorer, p policy.Policy, opts ...Option) (*Engine, error) {
	if matcher == nil {
		return nil, errors.New("sanctions matcher is required")
	}
	if scorer == nil {
		return nil, errors.New("country scorer is required")
	}
	e := &Engine{
		matcher:        matcher,
		scorer:         scorer,
		blockThreshold: p.BlockThreshold,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Decide screens a counterparty. It never fails: input validation belongs to
// the caller, and both checks are total functions.
func (e *Engine) Decide(ctx context.Context, entityName, entityCountry string) Decision {
	ctx, span := tracer.Start(ctx, "decision.Decide")
	defer span.End()
	start := time.Now()

	var (
		g     errgroup.Group
		match sanctions.Result
		score float64
	)
	g.Go(func() error {
		match = e.matcher.Match(entityName, entityCountry)
		return nil
	})
	g.Go(func() error {
		score = e.scorer.Score(entityCountry, entityName)
		return nil
	})
	_ = g.Wait()

	d := Evaluate(match, score, e.blockThreshold)

	e.metrics.ObserveDecideLatency(time.Since(start))
	e.metrics.IncrementOutcome(string(d.Status), string(d.BlockCause))
	if d.Sanctioned {
		kind := "name"
		if d.MatchedEntity == nil {
			kind = "country"
		}
		e.metrics.IncrementSanctionsMatch(kind)
	}

	span.SetAttributes(
		attribute.String("decision.status", string(d.Status)),
		attribute.String("decision.block_cause", string(d.BlockCause)),
		attribute.Float64("decision.country_risk_score", d.CountryRiskScore),
	)

	if d.Blocked() {
		attrs := []any{
			"country", entityCountry,
			"block_cause", d.BlockCause,
			"reason", d.BlockReason(),
			"score", d.CountryRiskScore,
		}
		if d.MatchedEntity != nil {
			attrs = append(attrs,
				"similarity", d.Similarity,
				"edit_distance", d.EditDistance,
			)
		}
		e.logger.InfoContext(ctx, "counterparty blocked", attrs...)
	}
	return d
}
