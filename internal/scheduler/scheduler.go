package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs the report daily at 21:00 UTC.
const DefaultSchedule = "0 21 * * *"

// Scheduler runs the daily report job.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	schedule   string
	reportFunc func(ctx context.Context) error
	logger     *zap.Logger
}

func New(schedule string, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		schedule: schedule,
		logger:   logger,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report job and starts the cron loop. Without a report
// function it does nothing.
func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		s.logger.Warn("report function not set, scheduler will not generate reports")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.runReport); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// RunNow executes the report job synchronously.
func (s *Scheduler) RunNow() error {
	if s.reportFunc == nil {
		return errors.New("report function not set")
	}
	return s.reportFunc(s.ctx)
}

func (s *Scheduler) runReport() {
	s.logger.Info("triggered report generation")
	if err := s.reportFunc(s.ctx); err != nil {
		s.logger.Error("report generation failed", zap.Error(err))
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
