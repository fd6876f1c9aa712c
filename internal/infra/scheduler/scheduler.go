package scheduler

import (
	"context"
	"fmt"
	"time"

	"assistance_alerts/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresher re-evaluates the notification feed.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (app.Snapshot, error)
}

// Digester pushes the current feed to the manager.
type Digester interface {
	SendDigest(ctx context.Context) error
}

type NotificationScheduler struct {
	cronEngine      *cron.Cron
	refresher       Refresher
	digester        Digester // nil when the bot is disabled
	logger          *logrus.Entry
	cronSpecRefresh string
	cronSpecDigest  string
	jobTimeout      time.Duration
}

func NewNotificationScheduler(
	refresher Refresher,
	digester Digester,
	logger *logrus.Entry,
	loc *time.Location,
	cronSpecRefresh string, // e.g., "@every 5m"
	cronSpecDigest string, // e.g., "0 9 * * *" (9 AM daily)
	jobTimeout time.Duration,
) *NotificationScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &NotificationScheduler{
		// SkipIfStillRunning keeps a slow refresh from piling up behind itself.
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		refresher:       refresher,
		digester:        digester,
		logger:          logger,
		cronSpecRefresh: cronSpecRefresh,
		cronSpecDigest:  cronSpecDigest,
		jobTimeout:      jobTimeout,
	}
}

// Start registers the jobs and starts the cron engine. It fails if a cron
// spec cannot be parsed.
func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpecRefresh, s.runRefresh); err != nil {
		return fmt.Errorf("could not add refresh cron job %q: %w", s.cronSpecRefresh, err)
	}

	if s.digester != nil && s.cronSpecDigest != "" {
		if _, err := s.cronEngine.AddFunc(s.cronSpecDigest, s.runDigest); err != nil {
			return fmt.Errorf("could not add digest cron job %q: %w", s.cronSpecDigest, err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Notification scheduler started")
	return nil
}

func (s *NotificationScheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	s.logger.Debug("Cron job triggered for notification refresh")
	if _, err := s.refresher.Refresh(ctx, app.TriggerScheduled); err != nil {
		s.logger.WithError(err).Warn("Scheduled notification refresh failed")
	}
}

func (s *NotificationScheduler) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	s.logger.Info("Cron job triggered for notification digest")
	if err := s.digester.SendDigest(ctx); err != nil {
		s.logger.WithError(err).Error("Notification digest failed")
	}
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped")
}
