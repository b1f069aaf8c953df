package ics

import (
	"sort"
	"time"
)

const (
	// utcLayout is the compact absolute form used by feeds, e.g. 20250101T090000Z.
	utcLayout = "20060102T150405Z"

	paramTZID  = "TZID"
	paramValue = "VALUE"
	valueDate  = "DATE"
)

// Normalize converts a date/date-time property value into an absolute UTC
// instant. It reports false when the value cannot be interpreted.
//
// Only one parameter is ever consulted. Feeds are assumed to carry at most one
// relevant parameter per timestamp property (TZID or VALUE); when several are
// present the lexically smallest name is used, since parameter maps carry no
// order. Supported encodings:
//
//   - no parameters: 20250101T090000Z
//   - TZID=<IANA zone>: 20250101T090000, local wall clock in that zone
//   - VALUE=DATE: 20250101, taken as midnight UTC
//
// VALUE=DATE-TIME and every other parameter are not handled.
func Normalize(value string, params map[string][]string) (time.Time, bool) {
	if len(params) == 0 {
		return parseUTC(value)
	}

	name, values := firstParam(params)
	switch name {
	case paramTZID:
		if len(values) == 0 || value == "" {
			return time.Time{}, false
		}
		loc, ok := loadZone(values[0])
		if !ok {
			return time.Time{}, false
		}
		// The raw value has no zone suffix; parse the wall clock as if it were UTC.
		wall, ok := parseUTC(value + "Z")
		if !ok {
			return time.Time{}, false
		}
		return localToUTC(wall, loc)

	case paramValue:
		if len(values) == 0 || values[0] != valueDate || value == "" {
			return time.Time{}, false
		}
		return parseUTC(value + "T000000Z")

	default:
		return time.Time{}, false
	}
}

func parseUTC(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(utcLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func firstParam(params map[string][]string) (string, []string) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0], params[names[0]]
}

// loadZone resolves an IANA zone name. "" and "Local" resolve to UTC and the
// host zone in the time package, neither of which is a zone a feed can name.
func loadZone(name string) (*time.Location, bool) {
	if name == "" || name == "Local" {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// localToUTC reinterprets the wall clock of wall (a UTC value) as local time in
// loc. Wall clocks that fall into a DST gap or fold have zero or two matching
// instants and are rejected rather than guessed.
func localToUTC(wall time.Time, loc *time.Location) (time.Time, bool) {
	var found []time.Time

	// Transitions are months apart, so the offsets a day either side cover
	// both sides of any transition near wall.
	for _, probe := range []time.Duration{-24 * time.Hour, 0, 24 * time.Hour} {
		_, offset := wall.Add(probe).In(loc).Zone()
		candidate := wall.Add(-time.Duration(offset) * time.Second)
		if !sameWallClock(candidate.In(loc), wall) {
			continue
		}
		dup := false
		for _, f := range found {
			if f.Equal(candidate) {
				dup = true
				break
			}
		}
		if !dup {
			found = append(found, candidate)
		}
	}

	if len(found) != 1 {
		return time.Time{}, false
	}
	return found[0].UTC(), true
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
