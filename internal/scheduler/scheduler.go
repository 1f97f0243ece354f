package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
func (j JobFunc) Name() string                  { return j.JobName }

// Scheduler manages background jobs. A job never overlaps with itself;
// a tick that arrives while the previous run is active is skipped.
type Scheduler struct {
	cron   *cron.Cron
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler
func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "scheduler"))
	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn))

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", slog.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cancel()
	s.log.Info("Scheduler stopped")
}

// Every registers job to run at a fixed interval. Intervals below one
// second are rounded up to one second.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("interval for %s must be positive, got %s", job.Name(), interval)
	}
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.wrap(job)))

	s.log.Info("Job registered",
		slog.Duration("interval", interval),
		slog.String("job", job.Name()))
	return nil
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		s.log.Debug("Running job", slog.String("job", job.Name()))

		if err := job.Run(s.ctx); err != nil {
			s.log.Error("Job failed",
				slog.String("job", job.Name()),
				slog.Any("error", err))
			return
		}
		s.log.Debug("Job completed", slog.String("job", job.Name()))
	}
}
