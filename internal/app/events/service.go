package events

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/clock"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

type Service struct {
	events   eventrepo.Repository
	notifier notifier.Publisher
	clock    clock.Clock

	newEventID func() domain.EventID
	observe    func(kind notifier.Kind)
}

func NewService(eventsRepo eventrepo.Repository, pub notifier.Publisher, clk clock.Clock) *Service {
	if pub == nil {
		pub = notifier.Discard{}
	}
	return &Service{
		events:   eventsRepo,
		notifier: pub,
		clock:    clk,
		newEventID: func() domain.EventID {
			return domain.EventID(uuid.NewString())
		},
		observe: func(notifier.Kind) {},
	}
}

// SetNewEventIDForTest overrides event ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewEventIDForTest(fn func() domain.EventID) {
	if fn != nil {
		s.newEventID = fn
	}
}

// SetChangeObserver registers fn to be called after every committed change.
func (s *Service) SetChangeObserver(fn func(kind notifier.Kind)) {
	if fn != nil {
		s.observe = fn
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Event, error) {
	es, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(es))
	for _, e := range es {
		out = append(out, toDomainEvent(e))
	}
	return out, nil
}

// Get returns the event as seen by caller. An empty caller is anonymous and gets no
// attending flag.
func (s *Service) Get(ctx context.Context, caller domain.SubjectID, id domain.EventID) (domain.EventView, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return domain.EventView{}, err
	}
	v := domain.EventView{Event: toDomainEvent(e)}
	if caller != "" {
		attending := e.HasAttendee(caller)
		v.Attending = &attending
	}
	return v, nil
}

func (s *Service) Create(ctx context.Context, caller domain.SubjectID, in RawEvent) (domain.Event, error) {
	if caller == "" {
		return domain.Event{}, errUnauthorized()
	}
	if err := Validate(in, ModeFull); err != nil {
		return domain.Event{}, err
	}

	now := s.clock.Now()
	e := eventrepo.Event{
		ID:        s.newEventID(),
		CreatedBy: caller,
		Attendees: []domain.SubjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	Normalize(in, ModeFull).Apply(&e)

	if err := s.events.Create(ctx, e); err != nil {
		if errors.Is(err, eventrepo.ErrAlreadyExists) {
			// UUID collision.
			return domain.Event{}, &Error{Status: 409, Code: CodeIDConflict, Message: "event id conflict"}
		}
		return domain.Event{}, err
	}

	s.changed(ctx, notifier.Notification{Kind: notifier.KindCreated, EventID: e.ID, Actor: caller, OccurredAt: now})
	return toDomainEvent(e), nil
}

// Update applies a partial change. Checks run in order: existence, ownership, validation.
func (s *Service) Update(ctx context.Context, caller domain.SubjectID, id domain.EventID, in RawEvent) (domain.Event, error) {
	if caller == "" {
		return domain.Event{}, errUnauthorized()
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if err := Authorize(caller, current); err != nil {
		return domain.Event{}, err
	}
	if err := Validate(in, ModePartial); err != nil {
		return domain.Event{}, err
	}

	fields := Normalize(in, ModePartial)
	if fields.IsEmpty() {
		return domain.Event{}, &Error{Status: 400, Code: CodeNoFields, Message: "No fields to update"}
	}

	now := s.clock.Now()
	updated, err := s.events.Update(ctx, id, fields, now)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.Event{}, errNotFound()
		}
		return domain.Event{}, err
	}

	s.changed(ctx, notifier.Notification{Kind: notifier.KindUpdated, EventID: id, Actor: caller, OccurredAt: now})
	return toDomainEvent(updated), nil
}

func (s *Service) Delete(ctx context.Context, caller domain.SubjectID, id domain.EventID) error {
	if caller == "" {
		return errUnauthorized()
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, current); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return errNotFound()
		}
		return err
	}

	s.changed(ctx, notifier.Notification{Kind: notifier.KindDeleted, EventID: id, Actor: caller, OccurredAt: s.clock.Now()})
	return nil
}

func (s *Service) load(ctx context.Context, id domain.EventID) (eventrepo.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return eventrepo.Event{}, errNotFound()
		}
		return eventrepo.Event{}, err
	}
	return e, nil
}

// changed reports a committed mutation. The write has already happened, so the
// notification must not be dropped when the caller's request is canceled.
func (s *Service) changed(ctx context.Context, n notifier.Notification) {
	s.observe(n.Kind)
	_ = s.notifier.Publish(context.WithoutCancel(ctx), n)
}

func toDomainEvent(e eventrepo.Event) domain.Event {
	return domain.Event{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Details:       e.Details,
		Date:          e.Date,
		Image:         e.Image,
		CreatedBy:     e.CreatedBy,
		AttendeeCount: len(e.Attendees),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
