// internal/domain/notification/alert.go
package notification

import (
	"assistance_alerts/internal/domain/assistance"
	"assistance_alerts/internal/domain/campaign"
)

// LoanAlert is raised for an unreturned loan that is overdue or due soon.
// Alerts are rebuilt on every scan and compared by ID only.
type LoanAlert struct {
	ID            int64
	Kind          AlertKind // KindOverdue or KindDueSoon
	DaysOverdue   int       // set for KindOverdue
	DaysRemaining int       // set for KindDueSoon
	Record        assistance.Record
}

// CampaignAlert is raised for a campaign ending soon or recently ended.
type CampaignAlert struct {
	ID            int64
	Kind          AlertKind // KindEndingSoon or KindRecentlyEnded
	DaysRemaining int       // set for KindEndingSoon
	DaysSinceEnd  int       // set for KindRecentlyEnded
	Campaign      campaign.Campaign
}

// LoanAlerts groups the two loan lists in display order.
type LoanAlerts struct {
	Overdue []LoanAlert // most overdue first
	DueSoon []LoanAlert // most urgent first
}

func (l LoanAlerts) Len() int {
	return len(l.Overdue) + len(l.DueSoon)
}

// IDs returns every loan id in the group.
func (l LoanAlerts) IDs() []int64 {
	ids := make([]int64, 0, l.Len())
	for _, a := range l.Overdue {
		ids = append(ids, a.ID)
	}
	for _, a := range l.DueSoon {
		ids = append(ids, a.ID)
	}
	return ids
}

// CampaignAlerts groups the two campaign lists in display order.
type CampaignAlerts struct {
	RecentlyEnded []CampaignAlert // most recent first
	EndingSoon    []CampaignAlert // soonest first
}

func (c CampaignAlerts) Len() int {
	return len(c.RecentlyEnded) + len(c.EndingSoon)
}

func (c CampaignAlerts) IDs() []int64 {
	ids := make([]int64, 0, c.Len())
	for _, a := range c.RecentlyEnded {
		ids = append(ids, a.ID)
	}
	for _, a := range c.EndingSoon {
		ids = append(ids, a.ID)
	}
	return ids
}

// View is what consumers render. Counts only ever reflect the unacknowledged
// lists it carries: TotalCount == LoanCount + CampaignCount.
type View struct {
	LoanAlerts     LoanAlerts
	CampaignAlerts CampaignAlerts
	LoanCount      int
	CampaignCount  int
	TotalCount     int
}

// NewView builds a view and derives its counts from the lists.
func NewView(loans LoanAlerts, campaigns CampaignAlerts) View {
	v := View{
		LoanAlerts:     loans,
		CampaignAlerts: campaigns,
		LoanCount:      loans.Len(),
		CampaignCount:  campaigns.Len(),
	}
	v.TotalCount = v.LoanCount + v.CampaignCount
	return v
}
