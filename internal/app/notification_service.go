// internal/app/notification_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"assistance_alerts/internal/domain/assistance"
	"assistance_alerts/internal/domain/campaign"
	"assistance_alerts/internal/domain/clock"
	"assistance_alerts/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrSourceFetch wraps failures of the record-listing collaborators.
var ErrSourceFetch = errors.New("record source unavailable")

// ErrNotReady is returned by operations that need a loaded snapshot before
// the first successful refresh.
var ErrNotReady = errors.New("no notification data loaded yet")

// Refresh triggers, used for logging and metrics labels.
const (
	TriggerScheduled   = "scheduled"
	TriggerManual      = "manual"
	TriggerAcknowledge = "acknowledge"
	TriggerStartup     = "startup"
)

// Evaluate is the pure aggregation step with the default windows: scan both
// sources at now, drop acknowledged alerts, count what is left.
func Evaluate(records []assistance.Record, campaigns []campaign.Campaign, now time.Time, acks notification.AcknowledgementChecker) notification.View {
	return Aggregator{Scanner: Scanner{Windows: DefaultWindows()}}.Evaluate(records, campaigns, now, acks).View
}

// Aggregator merges both alert sources into one view.
type Aggregator struct {
	Scanner Scanner
}

// Evaluation is a view plus the scan bookkeeping that does not reach consumers.
type Evaluation struct {
	View             notification.View
	SkippedRecords   int
	SkippedCampaigns int
}

func (a Aggregator) Evaluate(records []assistance.Record, campaigns []campaign.Campaign, now time.Time, acks notification.AcknowledgementChecker) Evaluation {
	var (
		loanScan     LoanScan
		campaignScan CampaignScan
		wg           sync.WaitGroup
	)
	// Each scan only reads its own snapshot, so they run side by side.
	wg.Add(2)
	go func() {
		defer wg.Done()
		loanScan = a.Scanner.Loans(records, now)
	}()
	go func() {
		defer wg.Done()
		campaignScan = a.Scanner.Campaigns(campaigns, now)
	}()
	wg.Wait()

	loans := notification.LoanAlerts{
		Overdue: filterLoans(loanScan.Alerts.Overdue, acks),
		DueSoon: filterLoans(loanScan.Alerts.DueSoon, acks),
	}
	camps := notification.CampaignAlerts{
		RecentlyEnded: filterCampaigns(campaignScan.Alerts.RecentlyEnded, acks),
		EndingSoon:    filterCampaigns(campaignScan.Alerts.EndingSoon, acks),
	}
	return Evaluation{
		View:             notification.NewView(loans, camps),
		SkippedRecords:   loanScan.Skipped,
		SkippedCampaigns: campaignScan.Skipped,
	}
}

func filterLoans(alerts []notification.LoanAlert, acks notification.AcknowledgementChecker) []notification.LoanAlert {
	out := make([]notification.LoanAlert, 0, len(alerts))
	for _, a := range alerts {
		if acks != nil && acks.IsAcknowledged(notification.SourceLoan, a.ID) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func filterCampaigns(alerts []notification.CampaignAlert, acks notification.AcknowledgementChecker) []notification.CampaignAlert {
	out := make([]notification.CampaignAlert, 0, len(alerts))
	for _, a := range alerts {
		if acks != nil && acks.IsAcknowledged(notification.SourceCampaign, a.ID) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Snapshot is the last published view and its freshness.
type Snapshot struct {
	View        notification.View
	EvaluatedAt time.Time // reference instant of the pass
	RefreshedAt time.Time // when records were last fetched successfully
	Stale       bool      // the latest fetch failed; View is from an earlier pass
	StaleReason string
	Ready       bool // false until the first successful fetch
}

// Recorder receives evaluation metrics.
type Recorder interface {
	ObserveView(v notification.View)
	IncEvaluations(trigger string)
	IncFetchErrors(source string)
	IncAcknowledgementPersistErrors()
	ObserveFetchDuration(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveView(notification.View)      {}
func (nopRecorder) IncEvaluations(string)              {}
func (nopRecorder) IncFetchErrors(string)              {}
func (nopRecorder) IncAcknowledgementPersistErrors()   {}
func (nopRecorder) ObserveFetchDuration(time.Duration) {}

// NotificationService hosts the aggregator: it fetches snapshots, keeps the
// last good view, and re-filters after every acknowledgement change.
type NotificationService struct {
	assistanceRepo assistance.Repository
	campaignRepo   campaign.Repository
	acks           *AcknowledgementService
	aggregator     Aggregator
	clock          clock.Clock
	logger         *logrus.Entry
	metrics        Recorder
	fetchTimeout   time.Duration

	requested atomic.Uint64 // generation handed to the latest Refresh

	mu        sync.RWMutex
	applied   uint64 // generation of the records behind current
	current   Snapshot
	records   []assistance.Record
	campaigns []campaign.Campaign
}

// NotificationServiceOption customizes a NotificationService.
type NotificationServiceOption func(*NotificationService)

func WithWindows(w Windows) NotificationServiceOption {
	return func(s *NotificationService) { s.aggregator.Scanner.Windows = w }
}

func WithRecorder(r Recorder) NotificationServiceOption {
	return func(s *NotificationService) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithFetchTimeout(d time.Duration) NotificationServiceOption {
	return func(s *NotificationService) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func NewNotificationService(
	ar assistance.Repository,
	cr campaign.Repository,
	acks *AcknowledgementService,
	clk clock.Clock,
	logger *logrus.Entry,
	opts ...NotificationServiceOption,
) *NotificationService {
	s := &NotificationService{
		assistanceRepo: ar,
		campaignRepo:   cr,
		acks:           acks,
		aggregator:     Aggregator{Scanner: Scanner{Windows: DefaultWindows()}},
		clock:          clk,
		logger:         logger,
		metrics:        nopRecorder{},
		fetchTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the last published snapshot.
func (s *NotificationService) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh fetches both record snapshots and publishes a new view. If a newer
// refresh has already published by the time this one finishes, its result is
// dropped. On fetch failure the previous view stays and is flagged stale.
func (s *NotificationService) Refresh(ctx context.Context, trigger string) (Snapshot, error) {
	gen := s.requested.Add(1)
	log := s.logger.WithFields(logrus.Fields{"trigger": trigger, "generation": gen})

	start := time.Now()
	records, campaigns, err := s.fetch(ctx)
	s.metrics.ObserveFetchDuration(time.Since(start))
	if err != nil {
		log.WithError(err).Warn("Record fetch failed, keeping last known notifications")
		return s.markStale(gen, err), err
	}
	if err := s.acks.EnsureLoaded(ctx); err != nil {
		log.WithError(err).Warn("Acknowledgements still unreadable, filtering against the in-memory set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.applied {
		log.WithField("applied_generation", s.applied).Debug("Refresh superseded by a newer one, discarding result")
		return s.current, nil
	}

	s.applied = gen
	s.records = records
	s.campaigns = campaigns
	s.evaluateLocked(log, trigger)
	s.current.RefreshedAt = s.current.EvaluatedAt
	s.current.Stale = false
	s.current.StaleReason = ""
	s.current.Ready = true
	return s.current, nil
}

func (s *NotificationService) fetch(ctx context.Context) ([]assistance.Record, []campaign.Campaign, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var (
		records   []assistance.Record
		campaigns []campaign.Campaign
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.assistanceRepo.ListAssistanceRecords(gctx)
		if err != nil {
			s.metrics.IncFetchErrors(string(notification.SourceLoan))
			return fmt.Errorf("%w: listing assistance records: %v", ErrSourceFetch, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		campaigns, err = s.campaignRepo.ListCampaigns(gctx)
		if err != nil {
			s.metrics.IncFetchErrors(string(notification.SourceCampaign))
			return fmt.Errorf("%w: listing campaigns: %v", ErrSourceFetch, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, campaigns, nil
}

func (s *NotificationService) markStale(gen uint64, err error) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.applied {
		// A newer refresh already published fresh data.
		return s.current
	}
	s.current.Stale = true
	s.current.StaleReason = err.Error()
	return s.current
}

// evaluateLocked runs one pass over the held records. The clock is read once
// here and used for the whole pass. Callers hold s.mu.
func (s *NotificationService) evaluateLocked(log *logrus.Entry, trigger string) {
	now := s.clock.Now()
	ev := s.aggregator.Evaluate(s.records, s.campaigns, now, s.acks.Snapshot())

	s.current.View = ev.View
	s.current.EvaluatedAt = now
	s.metrics.IncEvaluations(trigger)
	s.metrics.ObserveView(ev.View)

	if ev.SkippedRecords+ev.SkippedCampaigns > 0 {
		log.WithFields(logrus.Fields{
			"skipped_records":   ev.SkippedRecords,
			"skipped_campaigns": ev.SkippedCampaigns,
		}).Debug("Skipped malformed records during scan")
	}
	log.WithFields(logrus.Fields{
		"loan_count":     ev.View.LoanCount,
		"campaign_count": ev.View.CampaignCount,
		"total_count":    ev.View.TotalCount,
	}).Info("Notifications evaluated")
}

// refilter re-runs filtering over the held records after an acknowledgement
// change so counts always match the lists.
func (s *NotificationService) refilter() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.Ready {
		return s.current
	}
	s.evaluateLocked(s.logger.WithField("trigger", TriggerAcknowledge), TriggerAcknowledge)
	return s.current
}

// Acknowledge hides one alert. A persistence failure is returned alongside a
// snapshot that already reflects the change.
func (s *NotificationService) Acknowledge(ctx context.Context, source notification.Source, id int64) (Snapshot, error) {
	err := s.acks.Acknowledge(ctx, source, id)
	return s.afterMutation(err, logrus.Fields{"source": source, "id": id})
}

// AcknowledgeAll marks exactly the given ids as viewed.
func (s *NotificationService) AcknowledgeAll(ctx context.Context, loanIDs, campaignIDs []int64) (Snapshot, error) {
	err := s.acks.AcknowledgeAll(ctx, loanIDs, campaignIDs)
	return s.afterMutation(err, logrus.Fields{"loan_ids": len(loanIDs), "campaign_ids": len(campaignIDs)})
}

// AcknowledgeVisible marks every alert raised by the held snapshot as viewed,
// replacing the stored set. Ids that no longer alert are dropped. Without a
// loaded snapshot there is nothing to replace the set with, so it fails with
// ErrNotReady and leaves the acknowledgements untouched.
func (s *NotificationService) AcknowledgeVisible(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	if !s.current.Ready {
		snap := s.current
		s.mu.RUnlock()
		s.logger.WithField("operation", "acknowledge_visible").Warn("No notification data loaded yet, acknowledgements left unchanged")
		return snap, ErrNotReady
	}
	ev := s.aggregator.Evaluate(s.records, s.campaigns, s.current.EvaluatedAt, nil)
	s.mu.RUnlock()
	return s.AcknowledgeAll(ctx, ev.View.LoanAlerts.IDs(), ev.View.CampaignAlerts.IDs())
}

// Reset makes every alert visible again.
func (s *NotificationService) Reset(ctx context.Context) (Snapshot, error) {
	err := s.acks.Reset(ctx)
	return s.afterMutation(err, logrus.Fields{"operation": "reset"})
}

func (s *NotificationService) afterMutation(err error, fields logrus.Fields) (Snapshot, error) {
	if err != nil {
		if errors.Is(err, ErrAcknowledgementPersistence) {
			s.metrics.IncAcknowledgementPersistErrors()
			s.logger.WithFields(fields).WithError(err).Warn("Acknowledgement kept in memory only")
		} else {
			s.logger.WithFields(fields).WithError(err).Error("Acknowledgement failed")
		}
	}
	return s.refilter(), err
}
