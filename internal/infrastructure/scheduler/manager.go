// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"atendo/internal/shared/biztime"
	"atendo/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// SchedulerManager manages all scheduled jobs using gocron v2.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	// Track whether the scheduler has been started
	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone for cron expressions.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterImportSweepJob registers the periodic close of imported tickets
// left pending after a backfill.
func (m *SchedulerManager) RegisterImportSweepJob(sweep BatchJob, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			m.runImportSweep(ctx, sweep)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("import", "ticket-close"),
		gocron.WithName("import-ticket-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered import ticket sweep job", "interval", interval.String())
	return nil
}

func (m *SchedulerManager) runImportSweep(ctx context.Context, sweep BatchJob) {
	startTime := biztime.NowUTC()

	closed, err := sweep.Execute(ctx)
	if err != nil {
		m.logger.Errorw("import ticket sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}
	if closed > 0 {
		m.logger.Infow("import ticket sweep completed",
			"closed", closed,
			"duration", time.Since(startTime),
		)
	}
}

// Start starts the scheduler. Idempotent.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}
	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler started")
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}
	if err := m.scheduler.Shutdown(); err != nil {
		return err
	}
	m.started = false
	m.logger.Infow("scheduler stopped")
	return nil
}
