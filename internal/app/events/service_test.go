package events_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/gather-events/events-api/internal/adapters/memory/clock"
	memeventrepo "github.com/gather-events/events-api/internal/adapters/memory/eventrepo"
	memnotifier "github.com/gather-events/events-api/internal/adapters/memory/notifier"
	"github.com/gather-events/events-api/internal/app/events"
	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

func domainSubject(s string) domain.SubjectID { return domain.SubjectID(s) }

type fixture struct {
	svc      *events.Service
	repo     *memeventrepo.Repo
	recorder *memnotifier.Recorder
	clock    *memclock.ManualClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memeventrepo.NewRepo()
	rec := memnotifier.NewRecorder()
	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	svc := events.NewService(repo, rec, clk)
	n := 0
	svc.SetNewEventIDForTest(func() domain.EventID {
		n++
		return domain.EventID(fmt.Sprintf("e%d", n))
	})
	return fixture{svc: svc, repo: repo, recorder: rec, clock: clk}
}

func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *events.Error
	require.True(t, errors.As(err, &ae), "err=%v", err)
	require.Equal(t, status, ae.Status, "code=%s", ae.Code)
	require.Equal(t, code, ae.Code)
}

func TestService_CreateSetsOwnerAndEmptyAttendees(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ev, err := f.svc.Create(context.Background(), "u1", decode(t, `{"title":" Launch ","date":"2025-06-01","details":"d"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventID("e1"), ev.ID)
	assert.Equal(t, "Launch", ev.Title)
	assert.Equal(t, domain.SubjectID("u1"), ev.CreatedBy)
	assert.Equal(t, 0, ev.AttendeeCount)

	stored, err := f.repo.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.NotNil(t, stored.Attendees)
	assert.Empty(t, stored.Attendees)
	assert.Equal(t, []notifier.Kind{notifier.KindCreated}, f.recorder.Kinds())
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), "u1", decode(t, `{"title":"x"}`))
	requireAppError(t, err, 400, events.CodeValidation)

	_, err = f.svc.Create(context.Background(), "", decode(t, `{"title":"x","date":"2025-01-01"}`))
	requireAppError(t, err, 401, events.CodeUnauthorized)

	all, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.recorder.Kinds())
}

func TestService_ListSortedByDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for _, d := range []string{"2025-06-01", "2024-12-31", "2025-01-15"} {
		_, err := f.svc.Create(ctx, "u1", decode(t, `{"title":"t","date":"`+d+`"}`))
		require.NoError(t, err)
	}

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"2024-12-31", "2025-01-15", "2025-06-01"}, []string{all[0].Date, all[1].Date, all[2].Date})
}

func TestService_GetPersonalizesAttending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "owner", decode(t, `{"title":"t","date":"2025-01-01"}`))
	require.NoError(t, err)
	_, err = f.svc.Attend(ctx, "u2", ev.ID)
	require.NoError(t, err)

	anon, err := f.svc.Get(ctx, "", ev.ID)
	require.NoError(t, err)
	assert.Nil(t, anon.Attending)
	assert.Equal(t, 1, anon.AttendeeCount)

	mine, err := f.svc.Get(ctx, "u2", ev.ID)
	require.NoError(t, err)
	require.NotNil(t, mine.Attending)
	assert.True(t, *mine.Attending)

	other, err := f.svc.Get(ctx, "owner", ev.ID)
	require.NoError(t, err)
	require.NotNil(t, other.Attending)
	assert.False(t, *other.Attending)

	_, err = f.svc.Get(ctx, "", "missing")
	requireAppError(t, err, 404, events.CodeNotFound)
}

func TestService_UpdateOrderOfChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "owner", decode(t, `{"title":"t","date":"2025-01-01"}`))
	require.NoError(t, err)

	// Missing event beats validation.
	_, err = f.svc.Update(ctx, "owner", "missing", decode(t, `{"title":""}`))
	requireAppError(t, err, 404, events.CodeNotFound)

	// Ownership beats validation.
	_, err = f.svc.Update(ctx, "intruder", ev.ID, decode(t, `{"title":""}`))
	requireAppError(t, err, 403, events.CodeForbidden)

	_, err = f.svc.Update(ctx, "owner", ev.ID, decode(t, `{"title":""}`))
	requireAppError(t, err, 400, events.CodeValidation)

	_, err = f.svc.Update(ctx, "owner", ev.ID, decode(t, `{"createdBy":"intruder"}`))
	requireAppError(t, err, 400, events.CodeNoFields)
}

func TestService_UpdatePartial(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "owner", decode(t, `{"title":"t","date":"2025-01-01","description":"keep"}`))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	updated, err := f.svc.Update(ctx, "owner", ev.ID, decode(t, `{"date":"2026-02-02","image":" pic.png ","createdBy":"intruder"}`))
	require.NoError(t, err)
	assert.Equal(t, "t", updated.Title)
	assert.Equal(t, "keep", updated.Description)
	assert.Equal(t, "2026-02-02", updated.Date)
	assert.Equal(t, "pic.png", updated.Image)
	assert.Equal(t, domain.SubjectID("owner"), updated.CreatedBy)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.Equal(t, []notifier.Kind{notifier.KindCreated, notifier.KindUpdated}, f.recorder.Kinds())
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "owner", decode(t, `{"title":"t","date":"2025-01-01"}`))
	require.NoError(t, err)

	requireAppError(t, f.svc.Delete(ctx, "intruder", ev.ID), 403, events.CodeForbidden)
	require.NoError(t, f.svc.Delete(ctx, "owner", ev.ID))
	requireAppError(t, f.svc.Delete(ctx, "owner", ev.ID), 404, events.CodeNotFound)

	_, err = f.svc.Get(ctx, "", ev.ID)
	requireAppError(t, err, 404, events.CodeNotFound)
}

func TestService_AttendUnattend(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "owner", decode(t, `{"title":"t","date":"2025-01-01"}`))
	require.NoError(t, err)

	var observed []notifier.Kind
	f.svc.SetChangeObserver(func(k notifier.Kind) { observed = append(observed, k) })

	a, err := f.svc.Attend(ctx, "u1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Attendance{EventID: ev.ID, Attending: true, AttendeeCount: 1}, a)

	_, err = f.svc.Attend(ctx, "u1", ev.ID)
	requireAppError(t, err, 409, events.CodeAlreadyAttending)

	stored, err := f.repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Attendees, 1)

	a, err = f.svc.Unattend(ctx, "u1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.AttendeeCount)
	assert.False(t, a.Attending)

	_, err = f.svc.Unattend(ctx, "u1", ev.ID)
	requireAppError(t, err, 409, events.CodeNotAttending)

	_, err = f.svc.Attend(ctx, "u1", "missing")
	requireAppError(t, err, 404, events.CodeNotFound)

	assert.Equal(t, []notifier.Kind{notifier.KindAttended, notifier.KindUnattended}, observed)

	ns := f.recorder.Notifications()
	last := ns[len(ns)-1]
	assert.Equal(t, notifier.KindUnattended, last.Kind)
	require.NotNil(t, last.AttendeeCount)
	assert.Equal(t, 0, *last.AttendeeCount)
}

func TestService_ConcurrentAttendsCountEveryCaller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "owner", decode(t, `{"title":"t","date":"2025-01-01"}`))
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Attend(ctx, domain.SubjectID(fmt.Sprintf("u%d", i)), ev.ID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.svc.Get(ctx, "", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.AttendeeCount)
}

// ctxCapture records whether the context handed to Publish was still live.
type ctxCapture struct {
	mu   sync.Mutex
	errs []error
}

func (c *ctxCapture) Publish(ctx context.Context, _ notifier.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, ctx.Err())
	return ctx.Err()
}

func TestService_NotifiesEvenWhenRequestCanceled(t *testing.T) {
	t.Parallel()

	pub := &ctxCapture{}
	svc := events.NewService(memeventrepo.NewRepo(), pub, memclock.NewManualClock(time.Unix(1700000000, 0).UTC()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev, err := svc.Create(ctx, "owner", decode(t, `{"title":"t","date":"2025-01-01"}`))
	require.NoError(t, err)
	_, err = svc.Attend(ctx, "u1", ev.ID)
	require.NoError(t, err)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.errs, 2)
	for _, e := range pub.errs {
		assert.NoError(t, e)
	}
}
