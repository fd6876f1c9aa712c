package app

import (
	"sort"
	"time"

	"assistance_alerts/internal/domain/assistance"
	"assistance_alerts/internal/domain/campaign"
	"assistance_alerts/internal/domain/notification"
)

// Windows holds the day thresholds used by both scanners.
type Windows struct {
	DueSoonDays       int
	EndingSoonDays    int
	RecentlyEndedDays int
}

func DefaultWindows() Windows {
	return Windows{
		DueSoonDays:       assistance.DefaultDueSoonDays,
		EndingSoonDays:    campaign.DefaultEndingSoonDays,
		RecentlyEndedDays: campaign.DefaultRecentlyEndedDays,
	}
}

// Scanner turns record snapshots into ordered alert lists. It has no side
// effects and never fails: unusable records are counted in Skipped.
type Scanner struct {
	Windows Windows
}

// LoanScan is the result of one pass over assistance records.
type LoanScan struct {
	Alerts  notification.LoanAlerts
	Skipped int
}

// CampaignScan is the result of one pass over campaigns.
type CampaignScan struct {
	Alerts  notification.CampaignAlerts
	Skipped int
}

// ScanLoans scans with the default windows.
func ScanLoans(records []assistance.Record, now time.Time) notification.LoanAlerts {
	return Scanner{Windows: DefaultWindows()}.Loans(records, now).Alerts
}

// ScanCampaigns scans with the default windows.
func ScanCampaigns(campaigns []campaign.Campaign, now time.Time) notification.CampaignAlerts {
	return Scanner{Windows: DefaultWindows()}.Campaigns(campaigns, now).Alerts
}

func (s Scanner) Loans(records []assistance.Record, now time.Time) LoanScan {
	var out LoanScan
	seen := make(map[int64]struct{}, len(records))

	for _, r := range records {
		if !validLoanRecord(r) {
			out.Skipped++
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		c := r.ClassifyWithin(now, s.Windows.DueSoonDays)
		switch c.State {
		case assistance.StateOverdue:
			out.Alerts.Overdue = append(out.Alerts.Overdue, notification.LoanAlert{
				ID:          r.ID,
				Kind:        notification.KindOverdue,
				DaysOverdue: c.DaysOverdue(),
				Record:      r,
			})
		case assistance.StateDueSoon:
			out.Alerts.DueSoon = append(out.Alerts.DueSoon, notification.LoanAlert{
				ID:            r.ID,
				Kind:          notification.KindDueSoon,
				DaysRemaining: c.DaysRemaining,
				Record:        r,
			})
		}
	}

	sort.SliceStable(out.Alerts.Overdue, func(i, j int) bool {
		a, b := out.Alerts.Overdue[i], out.Alerts.Overdue[j]
		if a.DaysOverdue != b.DaysOverdue {
			return a.DaysOverdue > b.DaysOverdue
		}
		return a.ID < b.ID
	})
	sort.SliceStable(out.Alerts.DueSoon, func(i, j int) bool {
		a, b := out.Alerts.DueSoon[i], out.Alerts.DueSoon[j]
		if a.DaysRemaining != b.DaysRemaining {
			return a.DaysRemaining < b.DaysRemaining
		}
		return a.ID < b.ID
	})
	return out
}

func (s Scanner) Campaigns(campaigns []campaign.Campaign, now time.Time) CampaignScan {
	var out CampaignScan
	seen := make(map[int64]struct{}, len(campaigns))
	windows := campaign.Windows{
		EndingSoonDays:    s.Windows.EndingSoonDays,
		RecentlyEndedDays: s.Windows.RecentlyEndedDays,
	}

	for _, c := range campaigns {
		if c.ID <= 0 || c.StartDate.IsZero() || c.EndDate.IsZero() {
			out.Skipped++
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}

		cl := c.ClassifyWithin(now, windows)
		switch cl.State {
		case campaign.StateRecentlyEnded:
			out.Alerts.RecentlyEnded = append(out.Alerts.RecentlyEnded, notification.CampaignAlert{
				ID:           c.ID,
				Kind:         notification.KindRecentlyEnded,
				DaysSinceEnd: cl.Metric,
				Campaign:     c,
			})
		case campaign.StateEndingSoon:
			out.Alerts.EndingSoon = append(out.Alerts.EndingSoon, notification.CampaignAlert{
				ID:            c.ID,
				Kind:          notification.KindEndingSoon,
				DaysRemaining: cl.Metric,
				Campaign:      c,
			})
		}
	}

	sort.SliceStable(out.Alerts.RecentlyEnded, func(i, j int) bool {
		a, b := out.Alerts.RecentlyEnded[i], out.Alerts.RecentlyEnded[j]
		if a.DaysSinceEnd != b.DaysSinceEnd {
			return a.DaysSinceEnd < b.DaysSinceEnd
		}
		return a.ID < b.ID
	})
	sort.SliceStable(out.Alerts.EndingSoon, func(i, j int) bool {
		a, b := out.Alerts.EndingSoon[i], out.Alerts.EndingSoon[j]
		if a.DaysRemaining != b.DaysRemaining {
			return a.DaysRemaining < b.DaysRemaining
		}
		return a.ID < b.ID
	})
	return out
}

// validLoanRecord rejects records the classifier cannot reason about:
// a missing identity, an unknown nature, or a present but zero due date on
// an outstanding loan.
func validLoanRecord(r assistance.Record) bool {
	if r.ID <= 0 {
		return false
	}
	if r.Nature != assistance.NatureLoan && r.Nature != assistance.NatureDonation {
		return false
	}
	if r.IsLoan() && !r.Returned && r.DueDate != nil && r.DueDate.IsZero() {
		return false
	}
	return true
}
