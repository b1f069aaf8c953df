// Package display renders events for the terminal and for xmobar.
package display

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/eviefp/hcs/internal/model"
)

// ErrMissingStart is returned when an event to display has no start time or
// no summary.
var ErrMissingStart = errors.New("event is missing start or summary")

const (
	maxCompactSummary = 16
	timeLayout        = "15:04"

	xmobarTimeColor    = "#00ed8a"
	xmobarSummaryColor = "#00d9ed"
)

// Formatter renders events in a fixed display timezone.
type Formatter struct {
	loc   *time.Location
	color bool
}

// New returns a Formatter for loc. With useColor false the output carries no
// ANSI escapes.
func New(loc *time.Location, useColor bool) *Formatter {
	return &Formatter{loc: loc, color: useColor}
}

// Event renders "HH:MM summary".
func (f *Formatter) Event(e model.Event) (string, error) {
	start, err := f.startTime(e)
	if err != nil {
		return "", err
	}
	return f.paint(color.FgGreen, start) + " " + f.paint(color.FgMagenta, e.Summary), nil
}

// Next renders the result of a next-event query. compact selects xmobar
// markup with the summary cut to 16 characters.
func (f *Formatter) Next(e *model.Event, compact bool) (string, error) {
	if e == nil {
		if compact {
			return fmt.Sprintf("<fc=%s>N/A</fc>", xmobarTimeColor), nil
		}
		return f.paint(color.FgGreen, "No events today."), nil
	}
	if !compact {
		return f.Event(*e)
	}

	start, err := f.startTime(*e)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<fc=%s>%s</fc> <fc=%s>%s</fc>",
		xmobarTimeColor, start, xmobarSummaryColor, truncate(e.Summary, maxCompactSummary)), nil
}

// ImportResult renders the counts reported by an import.
func (f *Formatter) ImportResult(r model.ReplaceResult) []string {
	return []string{
		fmt.Sprintf("Removed %s events!", f.paint(color.FgRed, fmt.Sprint(r.Deleted))),
		fmt.Sprintf("Inserted %s events!", f.paint(color.FgGreen, fmt.Sprint(r.Inserted))),
	}
}

func (f *Formatter) startTime(e model.Event) (string, error) {
	if e.Start == nil || e.Summary == "" {
		return "", ErrMissingStart
	}
	return e.Start.In(f.loc).Format(timeLayout), nil
}

func (f *Formatter) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if f.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
