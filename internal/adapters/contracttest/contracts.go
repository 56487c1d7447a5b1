package contracttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gather-events/events-api/internal/domain"
	eventrepoport "github.com/gather-events/events-api/internal/ports/out/eventrepo"
	idempotencyport "github.com/gather-events/events-api/internal/ports/out/idempotency"
	userrepoport "github.com/gather-events/events-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type EventRepoFactory func(t *testing.T) (eventrepoport.Repository, CleanupFunc)
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/events",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Distinct body hash is a distinct record.
	full := fp
	full.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, full); err != nil || ok {
		t.Fatalf("Get full fingerprint before Put: ok=%v err=%v", ok, err)
	}

	// PutIfAbsent never replaces a live record; a zero CreatedAt is stamped by the store.
	claimFP := fp
	claimFP.Key = idempotencyport.Key("claim-" + uuid.NewString())
	_, stored, err := store.PutIfAbsent(ctx, claimFP, idempotencyport.Record{ContentType: "text/plain", Body: []byte("first")})
	if err != nil || !stored {
		t.Fatalf("PutIfAbsent on empty slot: stored=%v err=%v", stored, err)
	}
	existing, stored, err := store.PutIfAbsent(ctx, claimFP, idempotencyport.Record{ContentType: "text/plain", Body: []byte("second")})
	if err != nil || stored {
		t.Fatalf("PutIfAbsent on taken slot: stored=%v err=%v", stored, err)
	}
	if string(existing.Body) != "first" || existing.CreatedAt.IsZero() {
		t.Fatalf("PutIfAbsent existing=%+v, want first record with a creation time", existing)
	}
	if got, ok, err := store.Get(ctx, claimFP); err != nil || !ok || string(got.Body) != "first" {
		t.Fatalf("Get after claims: ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Concurrent claims on one fingerprint have exactly one winner.
	raceFP := fp
	raceFP.Key = idempotencyport.Key("race-" + uuid.NewString())
	const claimers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.PutIfAbsent(ctx, raceFP, idempotencyport.Record{Body: []byte(fmt.Sprintf("claim-%d", i))})
			if err != nil {
				t.Errorf("PutIfAbsent %d: %v", i, err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("concurrent PutIfAbsent winners=%d, want 1", wins)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.UserID(uuid.NewString())
	email := "alice-" + uuid.NewString()[:8] + "@example.com"
	dob := "1990-04-01"
	if err := repo.Create(ctx, userrepoport.User{
		ID:             aID,
		Email:          email,
		PasswordDigest: "digest",
		FirstName:      "Alice",
		LastName:       "Johnson",
		DateOfBirth:    &dob,
		CreatedAt:      now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}

	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != email || got.PasswordDigest != "digest" || got.FirstName != "Alice" || got.LastName != "Johnson" {
		t.Fatalf("unexpected user: %#v", got)
	}
	if got.DateOfBirth == nil || *got.DateOfBirth != dob {
		t.Fatalf("DateOfBirth=%v, want %q", got.DateOfBirth, dob)
	}

	byEmail, err := repo.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != aID {
		t.Fatalf("GetByEmail().ID=%q, want %q", byEmail.ID, aID)
	}

	// Email uniqueness.
	err = repo.Create(ctx, userrepoport.User{
		ID:             domain.UserID(uuid.NewString()),
		Email:          email,
		PasswordDigest: "other",
		CreatedAt:      now,
	})
	if !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("duplicate email err=%v, want %v", err, userrepoport.ErrEmailTaken)
	}

	// Optional fields stay unset.
	bID := domain.UserID(uuid.NewString())
	if err := repo.Create(ctx, userrepoport.User{
		ID:             bID,
		Email:          "bob-" + uuid.NewString()[:8] + "@example.com",
		PasswordDigest: "digest",
		CreatedAt:      now,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	b, err := repo.GetByID(ctx, bID)
	if err != nil {
		t.Fatalf("GetByID b: %v", err)
	}
	if b.DateOfBirth != nil || b.FirstName != "" {
		t.Fatalf("unexpected optional fields: %#v", b)
	}

	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want %v", err, userrepoport.ErrNotFound)
	}
	if _, err := repo.GetByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByEmail missing err=%v, want %v", err, userrepoport.ErrNotFound)
	}
}

func RunEventRepo(t *testing.T, newRepo EventRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	owner := domain.SubjectID(uuid.NewString())
	newEvent := func(title, date string) eventrepoport.Event {
		return eventrepoport.Event{
			ID:          domain.EventID(uuid.NewString()),
			Title:       title,
			Description: "desc " + title,
			Details:     "",
			Date:        date,
			Image:       "",
			CreatedBy:   owner,
			Attendees:   []domain.SubjectID{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	late := newEvent("Late", "2031-03-01")
	early := newEvent("Early", "2030-06-01")
	mid := newEvent("Mid", "2030-12-24")
	for _, e := range []eventrepoport.Event{late, early, mid} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create %s: %v", e.Title, err)
		}
	}
	if err := repo.Create(ctx, early); !errors.Is(err, eventrepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate Create err=%v, want %v", err, eventrepoport.ErrAlreadyExists)
	}

	// Round trip.
	got, err := repo.GetByID(ctx, early.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Early" || got.Date != "2030-06-01" || got.Description != "desc Early" || got.CreatedBy != owner {
		t.Fatalf("unexpected event: %#v", got)
	}
	if len(got.Attendees) != 0 {
		t.Fatalf("Attendees=%v, want empty", got.Attendees)
	}
	if _, err := repo.GetByID(ctx, domain.EventID(uuid.NewString())); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want %v", err, eventrepoport.ErrNotFound)
	}

	// List ordering by date; other rows may exist in a shared store.
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var order []domain.EventID
	for _, e := range all {
		if e.ID == late.ID || e.ID == early.ID || e.ID == mid.ID {
			order = append(order, e.ID)
		}
	}
	if fmt.Sprint(order) != fmt.Sprint([]domain.EventID{early.ID, mid.ID, late.ID}) {
		t.Fatalf("List order=%v, want [%s %s %s]", order, early.ID, mid.ID, late.ID)
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Date > all[i].Date {
			t.Fatalf("List not sorted by date at %d: %s > %s", i, all[i-1].Date, all[i].Date)
		}
	}

	// Partial update touches only supplied fields.
	title := "Earlier"
	empty := ""
	later := now.Add(time.Hour)
	updated, err := repo.Update(ctx, early.ID, eventrepoport.Fields{Title: &title, Description: &empty}, later)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Earlier" || updated.Description != "" || updated.Date != "2030-06-01" || updated.CreatedBy != owner {
		t.Fatalf("unexpected updated event: %#v", updated)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Fatalf("UpdatedAt=%v, want %v", updated.UpdatedAt, later)
	}
	if _, err := repo.Update(ctx, domain.EventID(uuid.NewString()), eventrepoport.Fields{Title: &title}, later); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("Update missing err=%v, want %v", err, eventrepoport.ErrNotFound)
	}

	// Attend / unattend are set transitions.
	u1 := domain.SubjectID(uuid.NewString())
	m, err := repo.AddAttendee(ctx, mid.ID, u1)
	if err != nil || !m.Changed || m.Count != 1 {
		t.Fatalf("AddAttendee first: m=%+v err=%v", m, err)
	}
	m, err = repo.AddAttendee(ctx, mid.ID, u1)
	if err != nil || m.Changed || m.Count != 1 {
		t.Fatalf("AddAttendee second: m=%+v err=%v", m, err)
	}
	got, err = repo.GetByID(ctx, mid.ID)
	if err != nil || len(got.Attendees) != 1 || got.Attendees[0] != u1 {
		t.Fatalf("after attend twice: attendees=%v err=%v", got.Attendees, err)
	}
	m, err = repo.RemoveAttendee(ctx, mid.ID, u1)
	if err != nil || !m.Changed || m.Count != 0 {
		t.Fatalf("RemoveAttendee first: m=%+v err=%v", m, err)
	}
	m, err = repo.RemoveAttendee(ctx, mid.ID, u1)
	if err != nil || m.Changed || m.Count != 0 {
		t.Fatalf("RemoveAttendee second: m=%+v err=%v", m, err)
	}
	if _, err := repo.AddAttendee(ctx, domain.EventID(uuid.NewString()), u1); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("AddAttendee missing err=%v, want %v", err, eventrepoport.ErrNotFound)
	}
	if _, err := repo.RemoveAttendee(ctx, domain.EventID(uuid.NewString()), u1); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("RemoveAttendee missing err=%v, want %v", err, eventrepoport.ErrNotFound)
	}

	// N distinct concurrent attends lose no update.
	const n = 24
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := repo.AddAttendee(ctx, late.ID, domain.SubjectID(uuid.NewString()))
			if err != nil {
				errs <- err
				return
			}
			if !m.Changed {
				errs <- fmt.Errorf("distinct attendee reported unchanged")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent AddAttendee: %v", err)
	}
	got, err = repo.GetByID(ctx, late.ID)
	if err != nil || len(got.Attendees) != n {
		t.Fatalf("after concurrent attends: count=%d err=%v, want %d", len(got.Attendees), err, n)
	}

	// Concurrent duplicate attends by one subject: exactly one change.
	dup := domain.SubjectID(uuid.NewString())
	var (
		mu      sync.Mutex
		changed int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := repo.AddAttendee(ctx, early.ID, dup)
			if err != nil {
				return
			}
			if m.Changed {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if changed != 1 {
		t.Fatalf("duplicate concurrent attends changed=%d, want 1", changed)
	}
	got, err = repo.GetByID(ctx, early.ID)
	if err != nil || len(got.Attendees) != 1 {
		t.Fatalf("after duplicate attends: attendees=%v err=%v", got.Attendees, err)
	}

	// Delete.
	if err := repo.Delete(ctx, mid.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, mid.ID); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("GetByID after delete err=%v, want %v", err, eventrepoport.ErrNotFound)
	}
	if err := repo.Delete(ctx, mid.ID); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("Delete twice err=%v, want %v", err, eventrepoport.ErrNotFound)
	}
}
