package eventrepo

import (
	"context"
	"time"

	"github.com/gather-events/events-api/internal/domain"
)

// Event is the persistence shape used by the event repository.
// It is not an HTTP DTO.
type Event struct {
	ID domain.EventID

	Title       string
	Description string
	Details     string
	// Date is an ISO calendar date (YYYY-MM-DD) stored as a string.
	Date  string
	Image string

	// CreatedBy is set once at creation and never changed by Update.
	CreatedBy domain.SubjectID
	// Attendees is a set: no duplicates, order irrelevant.
	Attendees []domain.SubjectID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAttendee reports whether subject is in the attendee set.
func (e Event) HasAttendee(subject domain.SubjectID) bool {
	for _, a := range e.Attendees {
		if a == subject {
			return true
		}
	}
	return false
}

// Fields is a document fragment for the five mutable event fields.
// A nil pointer means "not supplied"; a pointer to "" means "supplied as empty".
type Fields struct {
	Title       *string
	Description *string
	Details     *string
	Date        *string
	Image       *string
}

// IsEmpty reports whether no field is supplied.
func (f Fields) IsEmpty() bool {
	return f.Title == nil && f.Description == nil && f.Details == nil && f.Date == nil && f.Image == nil
}

// Apply copies the supplied fields onto e.
func (f Fields) Apply(e *Event) {
	if f.Title != nil {
		e.Title = *f.Title
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	if f.Details != nil {
		e.Details = *f.Details
	}
	if f.Date != nil {
		e.Date = *f.Date
	}
	if f.Image != nil {
		e.Image = *f.Image
	}
}

// Membership is the result of an attendee set transition.
// Changed is false when the transition was a no-op (already a member / not a member).
type Membership struct {
	Changed bool
	Count   int
}

// Repository provides access to persisted events.
//
// Result ordering expectations:
// - List returns events ordered by Date ascending, ties broken by ID ascending.
//
// Attendee mutations must be atomic per event: implementations apply a set-union /
// set-difference in the store and never read the set into memory and write it back.
type Repository interface {
	Create(ctx context.Context, e Event) error
	GetByID(ctx context.Context, id domain.EventID) (Event, error)
	List(ctx context.Context) ([]Event, error)

	// Update applies the supplied fields and returns the stored event after the update.
	Update(ctx context.Context, id domain.EventID, f Fields, now time.Time) (Event, error)
	Delete(ctx context.Context, id domain.EventID) error

	AddAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (Membership, error)
	RemoveAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (Membership, error)
}
