package eventrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/gather-events/events-api/internal/adapters/postgres"
	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
)

// Repo is a Postgres implementation of eventrepo.Repository.
// Attendees live in a text[] column; membership changes are single conditional UPDATEs.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectColumns = `
	id, title, description, details, event_date, image, created_by, attendees, created_at, updated_at
`

func (r *Repo) Create(ctx context.Context, e eventrepo.Event) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return fmt.Errorf("invalid event id: %w", err)
	}
	attendees := subjectsToStrings(e.Attendees)

	_, err = r.pool.Exec(ctx, `
		INSERT INTO events (
			id, title, description, details, event_date, image, created_by, attendees, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		id,
		e.Title,
		e.Description,
		e.Details,
		e.Date,
		e.Image,
		string(e.CreatedBy),
		attendees,
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return eventrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EventID) (eventrepo.Event, error) {
	if r.pool == nil {
		return eventrepo.Event{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return eventrepo.Event{}, eventrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM events WHERE id = $1`, uid)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eventrepo.Event{}, eventrepo.ErrNotFound
		}
		return eventrepo.Event{}, err
	}
	return e, nil
}

func (r *Repo) List(ctx context.Context) ([]eventrepo.Event, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM events ORDER BY event_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]eventrepo.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, id domain.EventID, f eventrepo.Fields, now time.Time) (eventrepo.Event, error) {
	if r.pool == nil {
		return eventrepo.Event{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return eventrepo.Event{}, eventrepo.ErrNotFound
	}
	// NULL parameters keep the stored value.
	row := r.pool.QueryRow(ctx, `
		UPDATE events
		SET title       = COALESCE($2, title),
		    description = COALESCE($3, description),
		    details     = COALESCE($4, details),
		    event_date  = COALESCE($5, event_date),
		    image       = COALESCE($6, image),
		    updated_at  = $7
		WHERE id = $1
		RETURNING `+selectColumns,
		uid,
		f.Title,
		f.Description,
		f.Details,
		f.Date,
		f.Image,
		now.UTC(),
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eventrepo.Event{}, eventrepo.ErrNotFound
		}
		return eventrepo.Event{}, err
	}
	return e, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.EventID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return eventrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return eventrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) AddAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (eventrepo.Membership, error) {
	return r.transition(ctx, id, `
		UPDATE events
		SET attendees = array_append(attendees, $2::text)
		WHERE id = $1 AND NOT ($2::text = ANY(attendees))
		RETURNING cardinality(attendees)
	`, subject)
}

func (r *Repo) RemoveAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (eventrepo.Membership, error) {
	return r.transition(ctx, id, `
		UPDATE events
		SET attendees = array_remove(attendees, $2::text)
		WHERE id = $1 AND $2::text = ANY(attendees)
		RETURNING cardinality(attendees)
	`, subject)
}

// transition runs a conditional membership UPDATE. The row lock taken by UPDATE
// serializes concurrent transitions on one event; the predicate is re-checked after
// the lock so duplicates cannot slip in. When no row matches, a follow-up read tells
// a missing event from a no-op.
func (r *Repo) transition(ctx context.Context, id domain.EventID, stmt string, subject domain.SubjectID) (eventrepo.Membership, error) {
	if r.pool == nil {
		return eventrepo.Membership{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return eventrepo.Membership{}, eventrepo.ErrNotFound
	}

	var count int
	err = r.pool.QueryRow(ctx, stmt, uid, string(subject)).Scan(&count)
	if err == nil {
		return eventrepo.Membership{Changed: true, Count: count}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return eventrepo.Membership{}, err
	}

	err = r.pool.QueryRow(ctx, `SELECT cardinality(attendees) FROM events WHERE id = $1`, uid).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eventrepo.Membership{}, eventrepo.ErrNotFound
		}
		return eventrepo.Membership{}, err
	}
	return eventrepo.Membership{Changed: false, Count: count}, nil
}

func scanEvent(row pgx.Row) (eventrepo.Event, error) {
	var (
		id        uuid.UUID
		e         eventrepo.Event
		createdBy string
		attendees []string
	)
	if err := row.Scan(
		&id,
		&e.Title,
		&e.Description,
		&e.Details,
		&e.Date,
		&e.Image,
		&createdBy,
		&attendees,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return eventrepo.Event{}, err
	}
	e.ID = domain.EventID(id.String())
	e.CreatedBy = domain.SubjectID(createdBy)
	e.Attendees = make([]domain.SubjectID, 0, len(attendees))
	for _, a := range attendees {
		e.Attendees = append(e.Attendees, domain.SubjectID(a))
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func subjectsToStrings(in []domain.SubjectID) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
