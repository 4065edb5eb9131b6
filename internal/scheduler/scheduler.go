package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-station-charts/internal/weather"
)

// Runner rebuilds all outputs.
type Runner interface {
	Run(ctx context.Context, withCompile bool) (weather.RunSummary, error)
}

// Fetcher refreshes the raw exports before a rebuild.
type Fetcher interface {
	Enabled() bool
	FetchAll(ctx context.Context, stations []string) error
}

// Scheduler periodically downloads raw exports and rebuilds the charts.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	fetcher   Fetcher
	stations  []string
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. fetcher may be nil.
func New(runner Runner, fetcher Fetcher, stations []string, interval time.Duration, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		fetcher:   fetcher,
		stations:  stations,
		interval:  interval,
		timeout:   30 * time.Minute,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run starts immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: refresh interval not set; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce downloads the raw exports (when configured) and rebuilds everything.
func (s *Scheduler) RunOnce() {
	s.logger.Info("scheduler: running refresh job")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if s.fetcher != nil && s.fetcher.Enabled() {
		if err := s.fetcher.FetchAll(ctx, s.stations); err != nil {
			// Keep the previous raw files; they still compile.
			s.logger.Error("scheduler: raw export download failed", zap.Error(err))
		}
	}

	run, err := s.runner.Run(ctx, true)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Error("scheduler: refresh timed out", zap.Duration("timeout", s.timeout))
	case err != nil:
		s.logger.Error("scheduler: refresh failed", zap.Error(err))
	default:
		s.logger.Info("scheduler: completed refresh job", zap.String("run", run.ID))
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
