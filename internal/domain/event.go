package domain

import "time"

// DateLayout is the canonical storage layout for event dates.
// Dates are kept as strings so that lexicographic order equals chronological order.
const DateLayout = "2006-01-02"

// Event is the domain read model for an event.
type Event struct {
	ID EventID

	Title       string
	Description string
	Details     string
	Date        string
	Image       string

	CreatedBy     SubjectID
	AttendeeCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventView is an Event as seen by a particular caller.
// Attending is nil when the caller is anonymous.
type EventView struct {
	Event
	Attending *bool
}

// Attendance is the post-transition membership state returned by attend/unattend.
type Attendance struct {
	EventID       EventID
	Attending     bool
	AttendeeCount int
}
