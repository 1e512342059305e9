// Package jobs holds the periodic batch work: refreshing stored country
// scores and reconciling submitted payments against the ledger. Both jobs are
// idempotent and isolate per-row failures.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"geopulse/internal/platform/metrics"
	"geopulse/internal/screening/country"
	"geopulse/internal/storage"
	pstrings "geopulse/pkg/platform/strings"
)

const (
	JobRiskRefresh = "risk_refresh"
	JobReconcile   = "reconcile"

	defaultConcurrency = 4
)

// DefaultCountries is the refresh set used when none is configured.
var DefaultCountries = []string{"US", "CN", "RU", "IR", "NK", "GB", "FR", "DE", "JP", "IN"}

// Assessor scores a country.
type Assessor interface {
	Assess(countryCode, entityName string) country.Assessment
}

// Report summarizes one job run.
type Report struct {
	Job       string
	Scanned   int
	Updated   int
	Skipped   int
	Pending   int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

type counters struct {
	updated, skipped, pending, failed atomic.Int64
}

func (c *counters) fill(r *Report) {
	r.Updated = int(c.updated.Load())
	r.Skipped = int(c.skipped.Load())
	r.Pending = int(c.pending.Load())
	r.Failed = int(c.failed.Load())
}

func record(m *metrics.Metrics, r Report, err error) {
	m.ObserveJob(r.Job, r.Duration, err)
	m.AddJobRows(r.Job, "updated", r.Updated)
	m.AddJobRows(r.Job, "skipped", r.Skipped)
	m.AddJobRows(r.Job, "pending", r.Pending)
	m.AddJobRows(r.Job, "failed", r.Failed)
}

// RiskRefresher recomputes and upserts a score per country.
type RiskRefresher struct {
	assessor    Assessor
	store       storage.RiskScoreStore
	countries   []string
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// RefresherOption configures a RiskRefresher.
type RefresherOption func(*RiskRefresher)

// WithCountries replaces the refresh set. Codes are upper-cased and
// deduplicated.
func WithCountries(codes []string) RefresherOption {
	return func(r *RiskRefresher) {
		if codes = pstrings.Upper(codes); len(codes) > 0 {
			r.countries = codes
		}
	}
}

func WithRefresherConcurrency(n int) RefresherOption {
	return func(r *RiskRefresher) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithRefresherLogger(logger *slog.Logger) RefresherOption {
	return func(r *RiskRefresher) {
		r.logger = logger
	}
}

func WithRefresherMetrics(m *metrics.Metrics) RefresherOption {
	return func(r *RiskRefresher) {
		r.metrics = m
	}
}

// NewRiskRefresher requires an assessor and a store.
func NewRiskRefresher(assessor Assessor, store storage.RiskScoreStore, opts ...RefresherOption) (*RiskRefresher, error) {
	if assessor == nil {
		return nil, fmt.Errorf("assessor is required")
	}
	if store == nil {
		return nil, fmt.Errorf("risk score store is required")
	}
	r := &RiskRefresher{
		assessor:    assessor,
		store:       store,
		countries:   DefaultCountries,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run refreshes every configured country. A failed upsert is logged and
// counted; it does not stop the batch. The returned error is only ever the
// context's.
func (r *RiskRefresher) Run(ctx context.Context) (Report, error) {
	report := Report{Job: JobRiskRefresh, StartedAt: r.now(), Scanned: len(r.countries)}
	var c counters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, code := range r.countries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			a := r.assessor.Assess(code, "")
			err := r.store.Upsert(gctx, storage.RiskScore{
				CountryCode:  code,
				Score:        a.Score,
				Fundamentals: a.Fundamentals,
				UpdatedAt:    r.now().UTC(),
			})
			if err != nil {
				c.failed.Add(1)
				r.logger.ErrorContext(gctx, "risk score refresh failed",
					"country", code,
					"error", err,
				)
				return nil
			}
			c.updated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	c.fill(&report)
	report.Duration = time.Since(report.StartedAt)
	err := ctx.Err()
	record(r.metrics, report, err)
	r.logger.InfoContext(ctx, "risk scores refreshed",
		"updated", report.Updated,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, err
}
