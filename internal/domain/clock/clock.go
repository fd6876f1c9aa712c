// internal/domain/clock/clock.go
package clock

import (
	"sync"
	"time"
)

// Clock supplies the reference instant for an evaluation pass.
// Callers read it once per pass and thread the value through.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in the configured location.
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant until Set is called. Used in tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the fixed instant forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// DaysBetween returns the number of calendar days from `from` to `to`,
// both truncated to their date in `from`'s location. A negative result means
// `to` is on an earlier day.
func DaysBetween(from, to time.Time) int {
	loc := from.Location()
	to = to.In(loc)
	// Noon UTC on each civil date keeps DST shifts out of the subtraction.
	a := time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
