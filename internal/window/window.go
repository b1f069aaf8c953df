// Package window computes the UTC query windows behind the today, tomorrow
// and next commands and runs them against a store.
package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eviefp/hcs/internal/model"
	"github.com/eviefp/hcs/internal/store"
)

const span = 24 * time.Hour

var (
	ErrTodayWindow    = errors.New("cannot compute today's window")
	ErrTomorrowWindow = errors.New("cannot compute tomorrow's window")
	ErrNextWindow     = errors.New("cannot compute next window")
)

// Window is the half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Today returns the 24h starting at midnight of now's date in loc.
func Today(now time.Time, loc *time.Location) (Window, error) {
	start, err := midnight(now, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrTodayWindow, err)
	}
	return after(start, ErrTodayWindow)
}

// Tomorrow returns the 24h following Today's window.
func Tomorrow(now time.Time, loc *time.Location) (Window, error) {
	today, err := midnight(now, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrTomorrowWindow, err)
	}
	start := today.Add(span)
	if !start.After(today) {
		return Window{}, ErrTomorrowWindow
	}
	return after(start, ErrTomorrowWindow)
}

// Next returns [now, now+24h).
func Next(now time.Time) (Window, error) {
	return after(now.UTC(), ErrNextWindow)
}

// SelectNext picks the next event out of a window result. The store returns
// events ordered by start, so this is simply the first one; nil when empty.
func SelectNext(events []model.Event) *model.Event {
	if len(events) == 0 {
		return nil
	}
	return &events[0]
}

func midnight(now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, errors.New("nil location")
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(), nil
}

func after(start time.Time, errOverflow error) (Window, error) {
	end := start.Add(span)
	// Add does not report overflow.
	if !end.After(start) || end.Sub(start) != span {
		return Window{}, errOverflow
	}
	return Window{Start: start, End: end}, nil
}

// Selector answers the display queries against a store.
type Selector struct {
	store store.Querier
	loc   *time.Location
	now   func() time.Time
}

// NewSelector returns a Selector using loc for day boundaries. now defaults
// to time.Now when nil.
func NewSelector(q store.Querier, loc *time.Location, now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{store: q, loc: loc, now: now}
}

// Today lists today's events in start order.
func (s *Selector) Today(ctx context.Context) ([]model.Event, error) {
	w, err := Today(s.now(), s.loc)
	if err != nil {
		return nil, err
	}
	return s.store.EventsBetween(ctx, w.Start, w.End)
}

// Tomorrow lists tomorrow's events in start order.
func (s *Selector) Tomorrow(ctx context.Context) ([]model.Event, error) {
	w, err := Tomorrow(s.now(), s.loc)
	if err != nil {
		return nil, err
	}
	return s.store.EventsBetween(ctx, w.Start, w.End)
}

// Next returns the first event starting within the next 24 hours, or nil.
func (s *Selector) Next(ctx context.Context) (*model.Event, error) {
	w, err := Next(s.now())
	if err != nil {
		return nil, err
	}
	events, err := s.store.EventsBetween(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	return SelectNext(events), nil
}
