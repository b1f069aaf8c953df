package model

import "time"

// Event is the canonical record built from one VEVENT and stored under Key.
// Text fields use "" for absent; timestamps are nil when absent and otherwise
// always in UTC.
type Event struct {
	// Key identifies the import batch this event belongs to. Stores use it as
	// the replace-by-key partition.
	Key string `json:"key"`

	CalendarUID string `json:"calendar_uid,omitempty"` // iCalendar UID

	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Organizer   string `json:"organizer,omitempty"`
	Status      string `json:"status,omitempty"`
	Attach      string `json:"attach,omitempty"`

	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ReplaceResult is what a store reports after superseding every record under
// a key: how many old rows went away and how many new rows were written.
type ReplaceResult struct {
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}
