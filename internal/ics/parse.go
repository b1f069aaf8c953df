package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "github.com/eviefp/hcs/internal/log"
)

// ErrCalendarFetch is returned when a feed body is empty or holds no
// parseable calendar.
var ErrCalendarFetch = errors.New("calendar feed is empty or unparsable")

// Property is a single named field of a calendar component. An empty Value
// means the property carried no value.
type Property struct {
	Name   string
	Value  string
	Params map[string][]string
}

// Component is the ordered property list of one VEVENT, in feed order.
type Component []Property

// ParseFeed parses an ICS payload and returns the VEVENT components of the
// first calendar it contains.
//
// Individual properties are not interpreted here; see MapEvent. Recurrence
// rules are kept as plain properties and never expanded.
func ParseFeed(body []byte) ([]Component, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrCalendarFetch)
	}
	// The parser accepts a calendar that is cut off before its end line, which
	// would replace the stored events with a partial set.
	if !terminated(body) {
		return nil, fmt.Errorf("%w: missing END:VCALENDAR", ErrCalendarFetch)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalendarFetch, err)
	}

	events := cal.Events()
	comps := make([]Component, 0, len(events))
	for _, ve := range events {
		comp := make(Component, 0, len(ve.Properties))
		for _, p := range ve.Properties {
			comp = append(comp, Property{
				Name:   p.IANAToken,
				Value:  p.Value,
				Params: p.ICalParameters,
			})
		}
		comps = append(comps, comp)
	}

	appLog.Debug("ics parse completed", "event_count", len(comps))
	return comps, nil
}

// terminated reports whether the last non-blank line of body is
// END:VCALENDAR. A folded continuation line never counts as the end line.
func terminated(body []byte) bool {
	lines := strings.Split(string(body), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(line), "END:VCALENDAR")
	}
	return false
}
