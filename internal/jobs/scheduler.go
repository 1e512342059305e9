package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs. A run is skipped while the previous run
// of the same job is still going, and panics are recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name. spec accepts the standard five-field format
// and descriptors such as "@every 5m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.logger.ErrorContext(s.ctx, "scheduled job failed",
				"job", name,
				"error", err,
			)
			return
		}
		s.logger.DebugContext(s.ctx, "scheduled job finished",
			"job", name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them, or for ctx, whichever comes
// first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshJob adapts a RiskRefresher to Job.
func RefreshJob(r *RiskRefresher) Job {
	return func(ctx context.Context) error {
		_, err := r.Run(ctx)
		return err
	}
}

// ReconcileJob adapts a Reconciler to Job.
func ReconcileJob(r *Reconciler) Job {
	return func(ctx context.Context) error {
		_, err := r.Run(ctx)
		return err
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
