package assistance

import (
	"time"

	"assistance_alerts/internal/domain/clock"
)

// LifecycleState is the derived state of an assistance record at a given instant.
type LifecycleState string

const (
	StateDonation         LifecycleState = "DONATION"           // terminal, never alerts
	StateReturned         LifecycleState = "RETURNED"           // terminal
	StateActiveNoDueDate  LifecycleState = "ACTIVE_NO_DUE_DATE" // loan that cannot be scheduled
	StateActive           LifecycleState = "ACTIVE"
	StateDueSoon          LifecycleState = "DUE_SOON"
	StateOverdue          LifecycleState = "OVERDUE"
)

// DefaultDueSoonDays is the lookahead window for DUE_SOON.
const DefaultDueSoonDays = 7

// Classification is the result of classifying one record.
// DaysRemaining is negative for an overdue loan and is only set when the
// record carries a usable due date.
type Classification struct {
	State         LifecycleState
	DaysRemaining int
}

// DaysOverdue is the positive magnitude of an overdue loan, zero otherwise.
func (c Classification) DaysOverdue() int {
	if c.State != StateOverdue {
		return 0
	}
	return -c.DaysRemaining
}

// Alerting reports whether the state produces a loan alert.
func (c Classification) Alerting() bool {
	return c.State == StateOverdue || c.State == StateDueSoon
}

// Classify derives the lifecycle state with the default due-soon window.
func (r Record) Classify(now time.Time) Classification {
	return r.ClassifyWithin(now, DefaultDueSoonDays)
}

// ClassifyWithin derives the lifecycle state of r at now. Days are counted
// by calendar date, so a loan due today is DUE_SOON with 0 days remaining.
func (r Record) ClassifyWithin(now time.Time, dueSoonDays int) Classification {
	if !r.IsLoan() {
		return Classification{State: StateDonation}
	}
	if r.Returned {
		return Classification{State: StateReturned}
	}
	if r.DueDate == nil || r.DueDate.IsZero() {
		return Classification{State: StateActiveNoDueDate}
	}

	days := clock.DaysBetween(now, *r.DueDate)
	switch {
	case days < 0:
		return Classification{State: StateOverdue, DaysRemaining: days}
	case days <= dueSoonDays:
		return Classification{State: StateDueSoon, DaysRemaining: days}
	default:
		return Classification{State: StateActive, DaysRemaining: days}
	}
}
