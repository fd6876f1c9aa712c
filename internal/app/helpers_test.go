package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"assistance_alerts/internal/domain/assistance"
	"assistance_alerts/internal/domain/campaign"
	"assistance_alerts/internal/domain/clock"
	"assistance_alerts/internal/domain/notification"
	"assistance_alerts/internal/infra/memstore/memstoretest"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(testNow.Year(), testNow.Month(), testNow.Day()+offset, 0, 0, 0, 0, time.UTC)
}

func dayPtr(offset int) *time.Time {
	d := day(offset)
	return &d
}

func loan(id int64, dueOffset int) assistance.Record {
	return assistance.Record{ID: id, Nature: assistance.NatureLoan, DueDate: dayPtr(dueOffset)}
}

func running(id int64, endOffset int) campaign.Campaign {
	return campaign.Campaign{ID: id, Name: "Campagne", StartDate: day(-30), EndDate: day(endOffset)}
}

func testLogger() *logrus.Entry {
	l, _ := logtest.NewNullLogger()
	return logrus.NewEntry(l)
}

// fixtureRecords raises two overdue loans, one due-soon loan and two
// campaign alerts; everything else is quiet.
func fixtureRecords() ([]assistance.Record, []campaign.Campaign) {
	records := []assistance.Record{
		loan(1, -10),
		loan(2, -3),
		loan(3, 2),
		loan(4, 30),
		{ID: 5, Nature: assistance.NatureDonation, DueDate: dayPtr(-5)},
		{ID: 6, Nature: assistance.NatureLoan, Returned: true, DueDate: dayPtr(-5)},
	}
	campaigns := []campaign.Campaign{
		running(10, 2),
		running(11, -1),
		running(12, -5),
		running(13, 20),
	}
	return records, campaigns
}

type fixture struct {
	source *memstoretest.RecordSource
	repo   *memstoretest.AcknowledgementRepository
	acks   *AcknowledgementService
	svc    *NotificationService
	clock  *clock.Fixed
	rec    *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	records, campaigns := fixtureRecords()
	f := &fixture{
		source: memstoretest.NewRecordSource(records, campaigns),
		repo:   memstoretest.NewAcknowledgementRepository(),
		clock:  clock.NewFixed(testNow),
		rec:    &fakeRecorder{},
	}
	f.acks = NewAcknowledgementService(f.repo, f.clock, testLogger())
	require.NoError(t, f.acks.Load(context.Background()))
	f.svc = NewNotificationService(f.source, f.source, f.acks, f.clock, testLogger(), WithRecorder(f.rec))
	return f
}

func requireConsistent(t *testing.T, v notification.View) {
	t.Helper()
	require.Equal(t, len(v.LoanAlerts.Overdue)+len(v.LoanAlerts.DueSoon), v.LoanCount)
	require.Equal(t, len(v.CampaignAlerts.RecentlyEnded)+len(v.CampaignAlerts.EndingSoon), v.CampaignCount)
	require.Equal(t, v.LoanCount+v.CampaignCount, v.TotalCount)
}

type fakeRecorder struct {
	mu           sync.Mutex
	views        []notification.View
	evaluations  map[string]int
	fetchErrors  map[string]int
	persistFails int
}

func (r *fakeRecorder) ObserveView(v notification.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *fakeRecorder) IncEvaluations(trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.evaluations == nil {
		r.evaluations = map[string]int{}
	}
	r.evaluations[trigger]++
}

func (r *fakeRecorder) IncFetchErrors(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErrors == nil {
		r.fetchErrors = map[string]int{}
	}
	r.fetchErrors[source]++
}

func (r *fakeRecorder) IncAcknowledgementPersistErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistFails++
}

func (r *fakeRecorder) ObserveFetchDuration(time.Duration) {}
