package scheduler

import (
	"context"
	"fmt"

	"github.com/amaumene/neocable/internal/controllers"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron       *cron.Cron
	lineupCtrl *controllers.LineupController
	prefetcher *controllers.Prefetcher
	logger     *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(lineupCtrl *controllers.LineupController, prefetcher *controllers.Prefetcher, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		lineupCtrl: lineupCtrl,
		prefetcher: prefetcher,
		logger:     logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 6 hours: rebuild channel lineups from Trakt lists
	_, err := s.cron.AddFunc("0 */6 * * *", func() {
		s.runRefresh()
	})
	if err != nil {
		return fmt.Errorf("failed to add refresh job: %w", err)
	}

	// Every 30 minutes: warm links for the front of each channel
	_, err = s.cron.AddFunc("*/30 * * * *", func() {
		s.runWarmup()
	})
	if err != nil {
		return fmt.Errorf("failed to add warmup job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run initial refresh and warmup immediately
	go func() {
		s.runRefresh()
		s.logger.Info("Running initial warmup after refresh")
		s.runWarmup()
	}()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runRefresh executes the lineup refresh job
func (s *Scheduler) runRefresh() {
	s.logger.Info("Running scheduled lineup refresh")
	ctx := context.Background()

	if err := s.lineupCtrl.RefreshLineup(ctx); err != nil {
		s.logger.WithError(err).Error("Lineup refresh failed")
	} else {
		s.logger.Info("Lineup refresh completed successfully")
	}
}

// runWarmup executes the link warmup job
func (s *Scheduler) runWarmup() {
	s.logger.Info("Running scheduled warmup")
	ctx := context.Background()

	if err := s.prefetcher.WarmLineup(ctx); err != nil {
		s.logger.WithError(err).Error("Warmup failed")
	} else {
		s.logger.Info("Warmup completed successfully")
	}
}
