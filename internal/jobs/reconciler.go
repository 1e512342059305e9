package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"geopulse/internal/audit"
	"geopulse/internal/ledger"
	"geopulse/internal/platform/metrics"
	"geopulse/internal/storage"
)

const (
	defaultMaxRetries   = 4
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second

	unknownHash = "unknown_hash"
)

// Reconciler settles submitted transactions from ledger results.
type Reconciler struct {
	ledger      ledger.Client
	store       storage.TransactionStore
	recorder    *audit.Recorder
	concurrency int
	newBackoff  func() backoff.BackOff
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

func WithReconcilerConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithBackoff replaces the retry policy for transient ledger errors.
func WithBackoff(factory func() backoff.BackOff) ReconcilerOption {
	return func(r *Reconciler) {
		r.newBackoff = factory
	}
}

func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithReconcilerMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func WithAuditRecorder(rec *audit.Recorder) ReconcilerOption {
	return func(r *Reconciler) {
		r.recorder = rec
	}
}

// NewReconciler requires a ledger client and a transaction store.
func NewReconciler(client ledger.Client, store storage.TransactionStore, opts ...ReconcilerOption) (*Reconciler, error) {
	if client == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("transaction store is required")
	}
	r := &Reconciler{
		ledger:      client,
		store:       store,
		concurrency: defaultConcurrency,
		newBackoff:  defaultBackoff,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultInitialDelay
	b.MaxInterval = defaultMaxDelay
	return backoff.WithMaxRetries(b, defaultMaxRetries)
}

// Run checks every submitted transaction once. Rows without a usable hash are
// skipped, unvalidated or unknown transactions stay pending, and a row that
// fails does not affect the others.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	report := Report{Job: JobReconcile, StartedAt: r.now()}

	pending, err := r.store.ListByStatus(ctx, storage.TxSubmitted)
	if err != nil {
		report.Duration = time.Since(report.StartedAt)
		record(r.metrics, report, err)
		return report, fmt.Errorf("list submitted transactions: %w", err)
	}
	report.Scanned = len(pending)

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, tx := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.reconcileOne(gctx, tx, &c)
			return nil
		})
	}
	_ = g.Wait()

	c.fill(&report)
	report.Duration = time.Since(report.StartedAt)
	err = ctx.Err()
	record(r.metrics, report, err)
	r.logger.InfoContext(ctx, "reconciliation complete",
		"scanned", report.Scanned,
		"updated", report.Updated,
		"pending", report.Pending,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, err
}

func (r *Reconciler) reconcileOne(ctx context.Context, tx *storage.Transaction, c *counters) {
	if tx.Hash == "" || tx.Hash == unknownHash {
		c.skipped.Add(1)
		return
	}

	res, err := r.lookup(ctx, tx.Hash)
	if err != nil {
		if ledger.CategoryOf(err) == ledger.ErrorNotFound {
			c.pending.Add(1)
			return
		}
		c.failed.Add(1)
		r.logger.ErrorContext(ctx, "reconcile lookup failed",
			"tx_hash", tx.Hash,
			"category", ledger.CategoryOf(err),
			"error", err,
		)
		return
	}
	if !res.Validated {
		c.pending.Add(1)
		return
	}

	status := storage.TxFailed
	if res.Succeeded() {
		status = storage.TxSuccess
	}
	if err := r.store.UpdateStatus(ctx, tx.Hash, status, r.now().UTC()); err != nil {
		c.failed.Add(1)
		r.logger.ErrorContext(ctx, "reconcile update failed",
			"tx_hash", tx.Hash,
			"error", err,
		)
		return
	}
	c.updated.Add(1)
	r.recorder.Emit(ctx, audit.Event{
		Action:   audit.ActionTransactionSettled,
		Subject:  tx.Hash,
		Country:  tx.ReceiverCountry,
		Decision: string(status),
		Reason:   res.Code,
		Score:    tx.RiskScoreAtTime,
	})
}

// lookup retries only retryable ledger errors.
func (r *Reconciler) lookup(ctx context.Context, hash string) (ledger.Result, error) {
	op := func() (ledger.Result, error) {
		res, err := r.ledger.TransactionResult(ctx, hash)
		if err != nil && !ledger.IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	res, err := backoff.RetryWithData(op, backoff.WithContext(r.newBackoff(), ctx))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return res, err
}
