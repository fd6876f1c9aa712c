package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"assistance_alerts/internal/app"
	"assistance_alerts/internal/domain/assistance"
	"assistance_alerts/internal/domain/campaign"
	"assistance_alerts/internal/domain/clock"
	"assistance_alerts/internal/domain/notification"
	"assistance_alerts/internal/infra/memstore/memstoretest"
	"assistance_alerts/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day()+offset, 0, 0, 0, 0, time.UTC)
	return &d
}

type testServer struct {
	router  http.Handler
	source  *memstoretest.RecordSource
	ackRepo *memstoretest.AcknowledgementRepository
	svc     *app.NotificationService
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	l, _ := logtest.NewNullLogger()
	logger := logrus.NewEntry(l)

	source := memstoretest.NewRecordSource(
		[]assistance.Record{
			{ID: 1, Nature: assistance.NatureLoan, DueDate: day(-4), BeneficiaryName: "Karim"},
			{ID: 2, Nature: assistance.NatureLoan, DueDate: day(1)},
			{ID: 3, Nature: assistance.NatureDonation},
		},
		[]campaign.Campaign{
			{ID: 1, Name: "Hiver", StartDate: *day(-20), EndDate: *day(3)},
		},
	)
	ackRepo := memstoretest.NewAcknowledgementRepository()
	clk := clock.NewFixed(now)
	acks := app.NewAcknowledgementService(ackRepo, clk, logger)
	require.NoError(t, acks.Load(context.Background()))

	reg := prometheus.NewRegistry()
	svc := app.NewNotificationService(source, source, acks, clk, logger, app.WithRecorder(metrics.New(reg)))
	_, err := svc.Refresh(context.Background(), app.TriggerStartup)
	require.NoError(t, err)

	return &testServer{
		router:  NewRouter(NewHandler(svc, checks, logger), reg),
		source:  source,
		ackRepo: ackRepo,
		svc:     svc,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, notificationsResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp notificationsResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func TestListNotifications(t *testing.T) {
	s := newTestServer(t, nil)
	rec, resp := s.do(t, http.MethodGet, "/api/v1/notifications", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ready)
	assert.Equal(t, 2, resp.LoanCount)
	assert.Equal(t, 1, resp.CampaignCount)
	assert.Equal(t, 3, resp.TotalCount)
	require.Len(t, resp.LoanAlerts.Overdue, 1)
	assert.Equal(t, int64(1), resp.LoanAlerts.Overdue[0].ID)
	require.NotNil(t, resp.LoanAlerts.Overdue[0].DaysOverdue)
	assert.Equal(t, 4, *resp.LoanAlerts.Overdue[0].DaysOverdue)
	assert.Nil(t, resp.LoanAlerts.Overdue[0].DaysRemaining)
	assert.Equal(t, "Karim", resp.LoanAlerts.Overdue[0].BeneficiaryName)
	assert.Equal(t, "2026-03-06", resp.LoanAlerts.Overdue[0].DueDate)
	require.Len(t, resp.CampaignAlerts.EndingSoon, 1)
	require.NotNil(t, resp.CampaignAlerts.EndingSoon[0].DaysRemaining)
	assert.Equal(t, 3, *resp.CampaignAlerts.EndingSoon[0].DaysRemaining)
	assert.Nil(t, resp.CampaignAlerts.EndingSoon[0].DaysSinceEnd)
	assert.Empty(t, resp.CampaignAlerts.RecentlyEnded)
}

func TestAcknowledgeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec, resp := s.do(t, http.MethodPost, "/api/v1/notifications/loan/1/ack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.LoanAlerts.Overdue)
	assert.Equal(t, 1, resp.LoanCount)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, []int64{1}, s.ackRepo.Stored().LoanIDs)

	t.Run("bad requests", func(t *testing.T) {
		for _, path := range []string{
			"/api/v1/notifications/beneficiary/1/ack",
			"/api/v1/notifications/loan/abc/ack",
			"/api/v1/notifications/campaign/0/ack",
		} {
			rec, _ := s.do(t, http.MethodPost, path, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		}
	})
}

func TestAcknowledgeAllEndpoint(t *testing.T) {
	t.Run("empty body acknowledges what is shown", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec, resp := s.do(t, http.MethodPost, "/api/v1/notifications/ack-all", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, resp.TotalCount)
		assert.Equal(t, []int64{1, 2}, s.ackRepo.Stored().LoanIDs)
		assert.Equal(t, []int64{1}, s.ackRepo.Stored().CampaignIDs)
	})

	t.Run("explicit ids replace the set", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec, resp := s.do(t, http.MethodPost, "/api/v1/notifications/ack-all", `{"loanIds":[2],"campaignIds":[]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, resp.LoanCount)
		assert.Equal(t, 1, resp.CampaignCount)
	})

	t.Run("invalid json", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec, _ := s.do(t, http.MethodPost, "/api/v1/notifications/ack-all", `{"loanIds":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("body without ids is rejected", func(t *testing.T) {
		for _, body := range []string{`{}`, `null`, `{"loanIds":null}`} {
			s := newTestServer(t, nil)
			_, _ = s.do(t, http.MethodPost, "/api/v1/notifications/loan/1/ack", "")

			rec, _ := s.do(t, http.MethodPost, "/api/v1/notifications/ack-all", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Equal(t, []int64{1}, s.ackRepo.Stored().LoanIDs, body)
		}
	})
}

func TestAcknowledgeAllBeforeFirstRefresh(t *testing.T) {
	l, _ := logtest.NewNullLogger()
	logger := logrus.NewEntry(l)
	ctx := context.Background()

	source := memstoretest.NewRecordSource(
		[]assistance.Record{{ID: 1, Nature: assistance.NatureLoan, DueDate: day(-4)}}, nil)
	source.FailRecords(errors.New("connection refused"))
	ackRepo := memstoretest.NewAcknowledgementRepository()
	clk := clock.NewFixed(now)
	acks := app.NewAcknowledgementService(ackRepo, clk, logger)
	require.NoError(t, acks.Load(ctx))
	require.NoError(t, acks.Acknowledge(ctx, notification.SourceLoan, 1))

	reg := prometheus.NewRegistry()
	svc := app.NewNotificationService(source, source, acks, clk, logger)
	_, err := svc.Refresh(ctx, app.TriggerStartup)
	require.ErrorIs(t, err, app.ErrSourceFetch)
	s := &testServer{router: NewRouter(NewHandler(svc, nil, logger), reg), source: source, ackRepo: ackRepo, svc: svc}

	rec, _ := s.do(t, http.MethodPost, "/api/v1/notifications/ack-all", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, []int64{1}, ackRepo.Stored().LoanIDs)
}

func TestDueTodayKeepsZeroDaysRemaining(t *testing.T) {
	s := newTestServer(t, nil)
	s.source.SetRecords([]assistance.Record{{ID: 5, Nature: assistance.NatureLoan, DueDate: day(0)}})
	_, _ = s.do(t, http.MethodPost, "/api/v1/notifications/refresh", "")

	rec, _ := s.do(t, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"daysRemaining":0`)
	assert.NotContains(t, rec.Body.String(), `"daysOverdue"`)
}

func TestResetEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	_, _ = s.do(t, http.MethodPost, "/api/v1/notifications/ack-all", "")

	rec, resp := s.do(t, http.MethodPost, "/api/v1/notifications/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, resp.TotalCount)
}

func TestPersistenceFailureIsAWarning(t *testing.T) {
	s := newTestServer(t, nil)
	s.ackRepo.FailWith(errors.New("disk full"))

	rec, resp := s.do(t, http.MethodPost, "/api/v1/notifications/campaign/1/ack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, resp.CampaignCount)
	assert.Contains(t, resp.Warning, "disk full")
}

func TestRefreshEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec, resp := s.do(t, http.MethodPost, "/api/v1/notifications/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Stale)

	s.source.FailRecords(errors.New("connection refused"))
	rec, resp = s.do(t, http.MethodPost, "/api/v1/notifications/refresh", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, resp.Stale)
	assert.Contains(t, resp.StaleReason, "connection refused")
	assert.Equal(t, 3, resp.TotalCount, "last view is kept")
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		})
		rec, _ := s.do(t, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"database":"ok"`)
	})

	t.Run("dependency down", func(t *testing.T) {
		s := newTestServer(t, map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("no route") },
		})
		rec, _ := s.do(t, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "assistance_alerts_unacknowledged_total 3")
}
