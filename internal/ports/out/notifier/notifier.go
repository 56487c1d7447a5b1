package notifier

import (
	"context"
	"time"

	"github.com/gather-events/events-api/internal/domain"
)

type Kind string

const (
	KindCreated    Kind = "created"
	KindUpdated    Kind = "updated"
	KindDeleted    Kind = "deleted"
	KindAttended   Kind = "attended"
	KindUnattended Kind = "unattended"
)

// Notification describes a committed change to an event.
type Notification struct {
	Kind          Kind             `json:"kind"`
	EventID       domain.EventID   `json:"eventId"`
	Actor         domain.SubjectID `json:"actor"`
	AttendeeCount *int             `json:"attendeeCount,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

// Publisher delivers notifications after the change is stored.
// Delivery is best effort: implementations log their own failures and callers never
// fail a request because a notification could not be sent.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Discard is a Publisher that drops every notification.
type Discard struct{}

func (Discard) Publish(context.Context, Notification) error { return nil }
