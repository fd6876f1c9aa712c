package campaign

import (
	"context"
	"time"

	"assistance_alerts/internal/domain/clock"
)

// Campaign is a read-only snapshot of a campaign record.
// StartDate <= EndDate is expected but not enforced here.
type Campaign struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Repository is the read-only query API of the campaign owner.
type Repository interface {
	ListCampaigns(ctx context.Context) ([]Campaign, error)
}

// State is the derived position of a campaign relative to now.
type State string

const (
	StateUpcoming      State = "UPCOMING"
	StateRunning       State = "RUNNING" // more than the ending-soon window left
	StateEndingSoon    State = "ENDING_SOON"
	StateRecentlyEnded State = "RECENTLY_ENDED"
	StateEnded         State = "ENDED" // past the recently-ended window
)

const (
	DefaultEndingSoonDays    = 7
	DefaultRecentlyEndedDays = 3
)

// Windows bounds the ending-soon lookahead and the recently-ended lookback.
type Windows struct {
	EndingSoonDays    int
	RecentlyEndedDays int
}

func DefaultWindows() Windows {
	return Windows{
		EndingSoonDays:    DefaultEndingSoonDays,
		RecentlyEndedDays: DefaultRecentlyEndedDays,
	}
}

// Classification carries the state and its metric: days remaining for
// ENDING_SOON and RUNNING, days since end for RECENTLY_ENDED and ENDED.
type Classification struct {
	State  State
	Metric int
}

func (c Classification) Alerting() bool {
	return c.State == StateEndingSoon || c.State == StateRecentlyEnded
}

// Classify uses the default windows.
func (c Campaign) Classify(now time.Time) Classification {
	return c.ClassifyWithin(now, DefaultWindows())
}

// ClassifyWithin compares calendar dates in now's location. A campaign whose
// start falls after its end is reported UPCOMING.
func (c Campaign) ClassifyWithin(now time.Time, w Windows) Classification {
	if c.StartDate.After(c.EndDate) {
		return Classification{State: StateUpcoming}
	}
	if clock.DaysBetween(now, c.StartDate) > 0 {
		return Classification{State: StateUpcoming}
	}

	remaining := clock.DaysBetween(now, c.EndDate)
	if remaining >= 0 {
		if remaining <= w.EndingSoonDays {
			return Classification{State: StateEndingSoon, Metric: remaining}
		}
		return Classification{State: StateRunning, Metric: remaining}
	}

	since := -remaining
	if since <= w.RecentlyEndedDays {
		return Classification{State: StateRecentlyEnded, Metric: since}
	}
	return Classification{State: StateEnded, Metric: since}
}
