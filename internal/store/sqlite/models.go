package sqlite

import (
	"database/sql"
	"time"

	"github.com/eviefp/hcs/internal/model"
)

type Event struct {
	Key         string
	CalendarUID string `db:"calendar_uid"`
	Summary     string
	Description string
	Location    string
	Organizer   string
	Status      string
	Attach      string
	StartAt     sql.NullInt64 `db:"start_at"`
	EndAt       sql.NullInt64 `db:"end_at"`
	CreatedAt   sql.NullInt64 `db:"created_at"`
	UpdatedAt   sql.NullInt64 `db:"updated_at"`
}

func newEvent(e model.Event) Event {
	return Event{
		Key:         e.Key,
		CalendarUID: e.CalendarUID,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Organizer:   e.Organizer,
		Status:      e.Status,
		Attach:      e.Attach,
		StartAt:     toUnix(e.Start),
		EndAt:       toUnix(e.End),
		CreatedAt:   toUnix(e.CreatedAt),
		UpdatedAt:   toUnix(e.UpdatedAt),
	}
}

func (e Event) Convert() model.Event {
	return model.Event{
		Key:         e.Key,
		CalendarUID: e.CalendarUID,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Organizer:   e.Organizer,
		Status:      e.Status,
		Attach:      e.Attach,
		Start:       fromUnix(e.StartAt),
		End:         fromUnix(e.EndAt),
		CreatedAt:   fromUnix(e.CreatedAt),
		UpdatedAt:   fromUnix(e.UpdatedAt),
	}
}

func toUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
