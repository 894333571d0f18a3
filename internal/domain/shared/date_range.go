package shared

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Date truncates t to its calendar day in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive interval of calendar days. A nil end means open-ended.
type DateRange struct {
	start time.Time
	end   *time.Time
}

func NewDateRange(start time.Time, end *time.Time) (DateRange, error) {
	r := DateRange{start: Date(start)}
	if end != nil {
		e := Date(*end)
		if r.start.After(e) {
			return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, r.start.Format(DateLayout), e.Format(DateLayout))
		}
		r.end = &e
	}
	return r, nil
}

// NewClosedDateRange is a convenience for ranges with both bounds set.
func NewClosedDateRange(start, end time.Time) (DateRange, error) {
	return NewDateRange(start, &end)
}

func (r DateRange) Start() time.Time { return r.start }

// End returns the end date and whether the range is bounded.
func (r DateRange) End() (time.Time, bool) {
	if r.end == nil {
		return time.Time{}, false
	}
	return *r.end, true
}

func (r DateRange) IsOpenEnded() bool { return r.end == nil }

// IsActiveAt reports whether d falls inside the range, both bounds inclusive.
func (r DateRange) IsActiveAt(d time.Time) bool {
	d = Date(d)
	if d.Before(r.start) {
		return false
	}
	if r.end != nil && d.After(*r.end) {
		return false
	}
	return true
}

func (r DateRange) Contains(d time.Time) bool { return r.IsActiveAt(d) }

// OverlapsWith is false only when one range ends before the other starts.
func (r DateRange) OverlapsWith(other DateRange) bool {
	if r.end != nil && other.start.After(*r.end) {
		return false
	}
	if other.end != nil && r.start.After(*other.end) {
		return false
	}
	return true
}

// Days returns the number of calendar days in a bounded range, or 0 if open-ended.
func (r DateRange) Days() int {
	if r.end == nil {
		return 0
	}
	return int(r.end.Sub(r.start).Hours()/24) + 1
}

func (r DateRange) String() string {
	if r.end == nil {
		return r.start.Format(DateLayout) + " to open"
	}
	return r.start.Format(DateLayout) + " to " + r.end.Format(DateLayout)
}
