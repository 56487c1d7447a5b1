package userrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/userrepo"
)

// Repo is a MongoDB implementation of userrepo.Repository.
// Email uniqueness relies on the users_email_unique index created by the handle.
type Repo struct {
	coll *mongo.Collection
}

func NewRepo(coll *mongo.Collection) *Repo {
	return &Repo{coll: coll}
}

type userDoc struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	PasswordDigest string    `bson:"passwordDigest"`
	FirstName      string    `bson:"firstName"`
	LastName       string    `bson:"lastName"`
	DateOfBirth    *string   `bson:"dateOfBirth,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_, err := r.coll.InsertOne(ctx, userDoc{
		ID:             string(u.ID),
		Email:          u.Email,
		PasswordDigest: u.PasswordDigest,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		DateOfBirth:    u.DateOfBirth,
		CreatedAt:      u.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "users_email_unique") {
				return userrepo.ErrEmailTaken
			}
			return userrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (userrepo.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *Repo) findOne(ctx context.Context, filter bson.M) (userrepo.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	return userrepo.User{
		ID:             domain.UserID(doc.ID),
		Email:          doc.Email,
		PasswordDigest: doc.PasswordDigest,
		FirstName:      doc.FirstName,
		LastName:       doc.LastName,
		DateOfBirth:    doc.DateOfBirth,
		CreatedAt:      doc.CreatedAt.UTC(),
	}, nil
}
