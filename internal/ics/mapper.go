package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/eviefp/hcs/internal/model"
)

// MapEvent builds one Event from a component. Every property is visited once,
// in order, so a repeated property overwrites the earlier one. Unknown
// properties are ignored and values that fail to normalize leave the field
// empty; mapping never fails.
func MapEvent(key string, comp Component) model.Event {
	ev := model.Event{Key: key}

	for _, p := range comp {
		switch p.Name {
		case string(ical.ComponentPropertyAttach):
			ev.Attach = p.Value
		case string(ical.ComponentPropertyUniqueId):
			ev.CalendarUID = p.Value
		case string(ical.ComponentPropertyCreated):
			ev.CreatedAt = normalizePtr(p)
		case string(ical.ComponentPropertyDescription):
			ev.Description = p.Value
		case string(ical.ComponentPropertyDtEnd):
			ev.End = normalizePtr(p)
		case string(ical.ComponentPropertyLocation):
			ev.Location = p.Value
		case string(ical.ComponentPropertyOrganizer):
			ev.Organizer = p.Value
		case string(ical.ComponentPropertyDtStart):
			ev.Start = normalizePtr(p)
		case string(ical.ComponentPropertyStatus):
			// FIXME: STATUS is written to Organizer and Status stays empty;
			// whichever of STATUS/ORGANIZER comes last wins.
			ev.Organizer = p.Value
		case string(ical.ComponentPropertySummary):
			ev.Summary = p.Value
		case string(ical.ComponentPropertyLastModified):
			ev.UpdatedAt = normalizePtr(p)
		}
	}

	return ev
}

func normalizePtr(p Property) *time.Time {
	t, ok := Normalize(p.Value, p.Params)
	if !ok {
		return nil
	}
	return &t
}
