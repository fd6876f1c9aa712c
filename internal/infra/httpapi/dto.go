package httpapi

import (
	"time"

	"assistance_alerts/internal/app"
	"assistance_alerts/internal/domain/notification"
)

const dateLayout = "2006-01-02"

type loanAlertResponse struct {
	ID              int64  `json:"id"`
	Kind            string `json:"kind"`
	DaysOverdue     *int   `json:"daysOverdue,omitempty"`
	DaysRemaining   *int   `json:"daysRemaining,omitempty"`
	DueDate         string `json:"dueDate,omitempty"`
	BeneficiaryName string `json:"beneficiaryName,omitempty"`
	EquipmentLabel  string `json:"equipmentLabel,omitempty"`
}

type campaignAlertResponse struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	Name          string `json:"name,omitempty"`
	DaysRemaining *int   `json:"daysRemaining,omitempty"`
	DaysSinceEnd  *int   `json:"daysSinceEnd,omitempty"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
}

type loanAlertsResponse struct {
	Overdue []loanAlertResponse `json:"overdue"`
	DueSoon []loanAlertResponse `json:"dueSoon"`
}

type campaignAlertsResponse struct {
	RecentlyEnded []campaignAlertResponse `json:"recentlyEnded"`
	EndingSoon    []campaignAlertResponse `json:"endingSoon"`
}

type notificationsResponse struct {
	LoanAlerts     loanAlertsResponse     `json:"loanAlerts"`
	CampaignAlerts campaignAlertsResponse `json:"campaignAlerts"`
	LoanCount      int                    `json:"loanCount"`
	CampaignCount  int                    `json:"campaignCount"`
	TotalCount     int                    `json:"totalCount"`
	Ready          bool                   `json:"ready"`
	Stale          bool                   `json:"stale"`
	StaleReason    string                 `json:"staleReason,omitempty"`
	EvaluatedAt    *time.Time             `json:"evaluatedAt,omitempty"`
	RefreshedAt    *time.Time             `json:"refreshedAt,omitempty"`
	Warning        string                 `json:"warning,omitempty"`
}

type acknowledgeAllRequest struct {
	LoanIDs     []int64 `json:"loanIds"`
	CampaignIDs []int64 `json:"campaignIds"`
}

func toResponse(snap app.Snapshot) notificationsResponse {
	v := snap.View
	resp := notificationsResponse{
		LoanAlerts: loanAlertsResponse{
			Overdue: toLoanAlerts(v.LoanAlerts.Overdue),
			DueSoon: toLoanAlerts(v.LoanAlerts.DueSoon),
		},
		CampaignAlerts: campaignAlertsResponse{
			RecentlyEnded: toCampaignAlerts(v.CampaignAlerts.RecentlyEnded),
			EndingSoon:    toCampaignAlerts(v.CampaignAlerts.EndingSoon),
		},
		LoanCount:     v.LoanCount,
		CampaignCount: v.CampaignCount,
		TotalCount:    v.TotalCount,
		Ready:         snap.Ready,
		Stale:         snap.Stale,
		StaleReason:   snap.StaleReason,
	}
	if !snap.EvaluatedAt.IsZero() {
		t := snap.EvaluatedAt.UTC()
		resp.EvaluatedAt = &t
	}
	if !snap.RefreshedAt.IsZero() {
		t := snap.RefreshedAt.UTC()
		resp.RefreshedAt = &t
	}
	return resp
}

func toLoanAlerts(alerts []notification.LoanAlert) []loanAlertResponse {
	out := make([]loanAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		r := loanAlertResponse{
			ID:              a.ID,
			Kind:            string(a.Kind),
			BeneficiaryName: a.Record.BeneficiaryName,
			EquipmentLabel:  a.Record.EquipmentLabel,
		}
		// Only the metric matching the kind is emitted; 0 days remaining
		// means due today.
		switch a.Kind {
		case notification.KindOverdue:
			r.DaysOverdue = intPtr(a.DaysOverdue)
		case notification.KindDueSoon:
			r.DaysRemaining = intPtr(a.DaysRemaining)
		}
		if a.Record.DueDate != nil {
			r.DueDate = a.Record.DueDate.Format(dateLayout)
		}
		out = append(out, r)
	}
	return out
}

func toCampaignAlerts(alerts []notification.CampaignAlert) []campaignAlertResponse {
	out := make([]campaignAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		r := campaignAlertResponse{
			ID:        a.ID,
			Kind:      string(a.Kind),
			Name:      a.Campaign.Name,
			StartDate: a.Campaign.StartDate.Format(dateLayout),
			EndDate:   a.Campaign.EndDate.Format(dateLayout),
		}
		switch a.Kind {
		case notification.KindEndingSoon:
			r.DaysRemaining = intPtr(a.DaysRemaining)
		case notification.KindRecentlyEnded:
			r.DaysSinceEnd = intPtr(a.DaysSinceEnd)
		}
		out = append(out, r)
	}
	return out
}

func intPtr(n int) *int {
	return &n
}
