package eventrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
)

// Repo is an in-memory implementation of eventrepo.Repository.
// It is safe for concurrent use; attendee transitions happen under the write lock.
type Repo struct {
	mu sync.RWMutex

	byID map[domain.EventID]eventrepo.Event
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.EventID]eventrepo.Event),
	}
}

func (r *Repo) Create(ctx context.Context, e eventrepo.Event) error {
	_ = ctx
	if e.ID == "" {
		return eventrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[e.ID]; ok {
		return eventrepo.ErrAlreadyExists
	}
	r.byID[e.ID] = cloneEvent(e)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EventID) (eventrepo.Event, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return eventrepo.Event{}, eventrepo.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (r *Repo) List(ctx context.Context) ([]eventrepo.Event, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]eventrepo.Event, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return string(out[i].ID) < string(out[j].ID)
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

func (r *Repo) Update(ctx context.Context, id domain.EventID, f eventrepo.Fields, now time.Time) (eventrepo.Event, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return eventrepo.Event{}, eventrepo.ErrNotFound
	}
	f.Apply(&e)
	e.UpdatedAt = now
	r.byID[id] = e
	return cloneEvent(e), nil
}

func (r *Repo) Delete(ctx context.Context, id domain.EventID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return eventrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) AddAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (eventrepo.Membership, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return eventrepo.Membership{}, eventrepo.ErrNotFound
	}
	if e.HasAttendee(subject) {
		return eventrepo.Membership{Changed: false, Count: len(e.Attendees)}, nil
	}
	e.Attendees = append(cloneSubjects(e.Attendees), subject)
	r.byID[id] = e
	return eventrepo.Membership{Changed: true, Count: len(e.Attendees)}, nil
}

func (r *Repo) RemoveAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (eventrepo.Membership, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return eventrepo.Membership{}, eventrepo.ErrNotFound
	}
	if !e.HasAttendee(subject) {
		return eventrepo.Membership{Changed: false, Count: len(e.Attendees)}, nil
	}
	kept := make([]domain.SubjectID, 0, len(e.Attendees)-1)
	for _, a := range e.Attendees {
		if a != subject {
			kept = append(kept, a)
		}
	}
	e.Attendees = kept
	r.byID[id] = e
	return eventrepo.Membership{Changed: true, Count: len(kept)}, nil
}

func cloneEvent(e eventrepo.Event) eventrepo.Event {
	out := e
	out.Attendees = cloneSubjects(e.Attendees)
	return out
}

func cloneSubjects(in []domain.SubjectID) []domain.SubjectID {
	out := make([]domain.SubjectID, len(in))
	copy(out, in)
	return out
}
