package events

import (
	"context"
	"errors"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

// Attend adds caller to the event's attendee set.
//
// The add is a single add-if-absent in the store. A caller already in the set gets
// 409 ALREADY_ATTENDING and the set is left unchanged.
func (s *Service) Attend(ctx context.Context, caller domain.SubjectID, id domain.EventID) (domain.Attendance, error) {
	if caller == "" {
		return domain.Attendance{}, errUnauthorized()
	}
	m, err := s.events.AddAttendee(ctx, id, caller)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.Attendance{}, errNotFound()
		}
		return domain.Attendance{}, err
	}
	if !m.Changed {
		return domain.Attendance{}, &Error{
			Status:  409,
			Code:    CodeAlreadyAttending,
			Message: "already attending this event",
			Details: map[string]any{"attendeeCount": m.Count},
		}
	}

	s.transitioned(ctx, notifier.KindAttended, id, caller, m.Count)
	return domain.Attendance{EventID: id, Attending: true, AttendeeCount: m.Count}, nil
}

// Unattend removes caller from the event's attendee set with a single
// remove-if-present. A caller not in the set gets 409 NOT_ATTENDING.
func (s *Service) Unattend(ctx context.Context, caller domain.SubjectID, id domain.EventID) (domain.Attendance, error) {
	if caller == "" {
		return domain.Attendance{}, errUnauthorized()
	}
	m, err := s.events.RemoveAttendee(ctx, id, caller)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.Attendance{}, errNotFound()
		}
		return domain.Attendance{}, err
	}
	if !m.Changed {
		return domain.Attendance{}, &Error{
			Status:  409,
			Code:    CodeNotAttending,
			Message: "not attending this event",
			Details: map[string]any{"attendeeCount": m.Count},
		}
	}

	s.transitioned(ctx, notifier.KindUnattended, id, caller, m.Count)
	return domain.Attendance{EventID: id, Attending: false, AttendeeCount: m.Count}, nil
}

func (s *Service) transitioned(ctx context.Context, kind notifier.Kind, id domain.EventID, caller domain.SubjectID, count int) {
	s.changed(ctx, notifier.Notification{
		Kind:          kind,
		EventID:       id,
		Actor:         caller,
		AttendeeCount: &count,
		OccurredAt:    s.clock.Now(),
	})
}
