package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/romanzh1/vocab-srs/internal/service"
)

// Scheduler drives the background jobs: the phase sweep every few minutes
// and the daily wrong-answer ledger cleanup.
type Scheduler struct {
	cron *gocron.Scheduler
	svc  *service.Service
}

func New(svc *service.Service) *Scheduler {
	return &Scheduler{
		cron: gocron.NewScheduler(time.UTC),
		svc:  svc,
	}
}

func (s *Scheduler) Start(ctx context.Context, sweepInterval time.Duration) error {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}

	if _, err := s.cron.Every(sweepInterval).Do(func() {
		if _, err := s.svc.RunOverdueSweep(ctx); err != nil {
			zap.S().Errorw("phase sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.Every(1).Day().At("03:30").Do(func() {
		if _, err := s.svc.CleanupExpiredReviewWindows(ctx); err != nil {
			zap.S().Errorw("wrong answer cleanup failed", "error", err)
		}
	}); err != nil {
		return err
	}

	s.cron.StartAsync()
	zap.S().Infow("scheduler started", "sweep_interval", sweepInterval.String())
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
