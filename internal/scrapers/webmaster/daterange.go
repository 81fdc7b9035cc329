package webmaster

import (
	"fmt"
	"time"
)

const compactDateLayout = "20060102"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates that start is not after end, only the calendar day of
// each is considered.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	if r.StartCompact() > r.EndCompact() {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, r.StartCompact(), r.EndCompact())
	}
	return r, nil
}

// ParseDateRange parses two ISO 8601 calendar dates (2006-01-02).
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse start date: %w", err)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse end date: %w", err)
	}
	return NewDateRange(s, e)
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// StartCompact renders the start as YYYYMMDD, the form the console expects.
func (r DateRange) StartCompact() string {
	return r.Start.Format(compactDateLayout)
}

// EndCompact renders the end as YYYYMMDD.
func (r DateRange) EndCompact() string {
	return r.End.Format(compactDateLayout)
}
