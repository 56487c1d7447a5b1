package eventrepo

import (
	"context"
	"testing"
	"time"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
)

func TestRepo_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	if err := r.Create(ctx, eventrepo.Event{ID: "e1", Title: "T", Date: "2025-01-01", Attendees: []domain.SubjectID{"u1"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got.Attendees[0] = "mutated"
	got.Title = "mutated"

	again, err := r.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if again.Title != "T" || again.Attendees[0] != "u1" {
		t.Fatalf("stored event was mutated through a returned copy: %+v", again)
	}
}

func TestRepo_UpdateLeavesOwnerAndAttendees(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	created := time.Unix(100, 0).UTC()
	if err := r.Create(ctx, eventrepo.Event{
		ID: "e1", Title: "T", Date: "2025-01-01", CreatedBy: "owner",
		Attendees: []domain.SubjectID{"u1"}, CreatedAt: created, UpdatedAt: created,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	title := "New"
	now := time.Unix(200, 0).UTC()
	got, err := r.Update(ctx, "e1", eventrepo.Fields{Title: &title}, now)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "New" || got.CreatedBy != "owner" || len(got.Attendees) != 1 {
		t.Fatalf("Update()=%+v", got)
	}
	if !got.UpdatedAt.Equal(now) || !got.CreatedAt.Equal(created) {
		t.Fatalf("timestamps created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}
}
