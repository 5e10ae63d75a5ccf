package sales

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the layout of the inclusive start/end dates given by callers.
	DateLayout = "2006-01-02"
	// TimestampLayout is the layout the platform uses for created_at filters.
	TimestampLayout = "2006-01-02 15:04:05"
	// DefaultTimezone is the zone report days are cut in.
	DefaultTimezone = "America/Sao_Paulo"
)

// Window is a half-open interval [Start, End) on the order creation time.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds the window covering the inclusive calendar dates
// startDate..endDate in loc. An empty date defaults to yesterday.
func NewWindow(startDate, endDate string, loc *time.Location, now time.Time) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	yesterday := startOfDay(now.In(loc)).AddDate(0, 0, -1)

	start := yesterday
	if startDate != "" {
		d, err := time.ParseInLocation(DateLayout, startDate, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidWindow, startDate, err)
		}
		start = d
	}

	last := yesterday
	if endDate != "" {
		d, err := time.ParseInLocation(DateLayout, endDate, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidWindow, endDate, err)
		}
		last = d
	}

	w := Window{Start: start, End: last.AddDate(0, 0, 1)}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Yesterday returns the window of the calendar day before now in loc.
func Yesterday(now time.Time, loc *time.Location) Window {
	w, _ := NewWindow("", "", loc, now)
	return w
}

// Validate checks that the window is non-empty.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: bounds are required", ErrInvalidWindow)
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidWindow, w.Start.Format(TimestampLayout), w.End.Format(TimestampLayout))
	}
	return nil
}

// StartDate is the first calendar day of the window.
func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate is the last calendar day included in the window.
func (w Window) EndDate() string {
	return w.End.AddDate(0, 0, -1).Format(DateLayout)
}

// StartTimestamp formats Start the way the platform filters expect.
func (w Window) StartTimestamp() string {
	return w.Start.Format(TimestampLayout)
}

// EndTimestamp formats End the way the platform filters expect.
func (w Window) EndTimestamp() string {
	return w.End.Format(TimestampLayout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
