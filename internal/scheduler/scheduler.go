package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/service/bot"
	"github.com/dvbernardes/pastelbot/internal/service/commands"
	"github.com/dvbernardes/pastelbot/internal/service/reporting"
)

// Scheduler fires the automatic daily report. It only touches read-only
// reporting paths.
type Scheduler struct {
	cron         *cron.Cron
	reportingSvc *reporting.Service
	messagingSvc bot.MessagingService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewScheduler creates a scheduler running in the business timezone.
func NewScheduler(cfg *config.Config, reportingSvc *reporting.Service, messagingSvc bot.MessagingService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithLocation(cfg.Business.Location))

	return &Scheduler{
		cron:         c,
		reportingSvc: reportingSvc,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the daily report job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Reporting.CronSchedule))

	_, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.sendDailyReport)
	if err != nil {
		s.logger.Error("failed to schedule daily report", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sendDailyReport() {
	if s.cfg.Telegram.ReportChatID == "" {
		s.logger.Info("no report chat configured, skipping automatic report")
		return
	}

	s.logger.Info("generating automatic daily report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.reportingSvc.BuildDailyReport(ctx, s.reportingSvc.Today())
	if err != nil {
		s.logger.Error("failed to generate daily report", zap.Error(err))
		return
	}

	if err := s.messagingSvc.Notify(ctx, s.cfg.Telegram.ReportChatID, commands.FormatDailyReport(report)); err != nil {
		s.logger.Error("failed to send daily report", zap.Error(err))
		return
	}
	s.logger.Info("daily report sent")
}
