package userrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/gather-events/events-api/internal/adapters/postgres"
	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_digest, first_name, last_name, date_of_birth, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		id,
		u.Email,
		u.PasswordDigest,
		u.FirstName,
		u.LastName,
		u.DateOfBirth,
		u.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "users_email_unique":
				return userrepo.ErrEmailTaken
			case "users_pkey":
				return userrepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return r.getOne(ctx, `WHERE id = $1`, uid)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	return r.getOne(ctx, `WHERE email = $1`, email)
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (userrepo.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_digest, first_name, last_name, date_of_birth, created_at
		FROM users `+where, arg)

	var (
		id uuid.UUID
		u  userrepo.User
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordDigest, &u.FirstName, &u.LastName, &u.DateOfBirth, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	u.ID = domain.UserID(id.String())
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
