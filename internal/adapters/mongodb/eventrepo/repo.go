package eventrepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/ports/out/eventrepo"
)

// Repo is a MongoDB implementation of eventrepo.Repository.
// Documents are keyed by the canonical event id string. Attendee transitions use
// $addToSet / $pull in a single FindOneAndUpdate; the returned pre-image tells
// whether the set changed.
type Repo struct {
	coll *mongo.Collection
}

func NewRepo(coll *mongo.Collection) *Repo {
	return &Repo{coll: coll}
}

type eventDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Details     string    `bson:"details"`
	Date        string    `bson:"date"`
	Image       string    `bson:"image"`
	CreatedBy   string    `bson:"createdBy"`
	Attendees   []string  `bson:"attendees"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func (r *Repo) Create(ctx context.Context, e eventrepo.Event) error {
	attendees := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		attendees = append(attendees, string(a))
	}
	_, err := r.coll.InsertOne(ctx, eventDoc{
		ID:          string(e.ID),
		Title:       e.Title,
		Description: e.Description,
		Details:     e.Details,
		Date:        e.Date,
		Image:       e.Image,
		CreatedBy:   string(e.CreatedBy),
		Attendees:   attendees,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return eventrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EventID) (eventrepo.Event, error) {
	var doc eventDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return eventrepo.Event{}, eventrepo.ErrNotFound
		}
		return eventrepo.Event{}, err
	}
	return doc.toPort(), nil
}

func (r *Repo) List(ctx context.Context) ([]eventrepo.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]eventrepo.Event, 0)
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toPort())
	}
	return out, cur.Err()
}

func (r *Repo) Update(ctx context.Context, id domain.EventID, f eventrepo.Fields, now time.Time) (eventrepo.Event, error) {
	set := bson.M{"updatedAt": now.UTC()}
	for key, v := range map[string]*string{
		"title":       f.Title,
		"description": f.Description,
		"details":     f.Details,
		"date":        f.Date,
		"image":       f.Image,
	} {
		if v != nil {
			set[key] = *v
		}
	}

	var doc eventDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": string(id)},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return eventrepo.Event{}, eventrepo.ErrNotFound
		}
		return eventrepo.Event{}, err
	}
	return doc.toPort(), nil
}

func (r *Repo) Delete(ctx context.Context, id domain.EventID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return eventrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) AddAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (eventrepo.Membership, error) {
	before, err := r.transition(ctx, id, bson.M{"$addToSet": bson.M{"attendees": string(subject)}})
	if err != nil {
		return eventrepo.Membership{}, err
	}
	if before.HasAttendee(subject) {
		return eventrepo.Membership{Changed: false, Count: len(before.Attendees)}, nil
	}
	return eventrepo.Membership{Changed: true, Count: len(before.Attendees) + 1}, nil
}

func (r *Repo) RemoveAttendee(ctx context.Context, id domain.EventID, subject domain.SubjectID) (eventrepo.Membership, error) {
	before, err := r.transition(ctx, id, bson.M{"$pull": bson.M{"attendees": string(subject)}})
	if err != nil {
		return eventrepo.Membership{}, err
	}
	if !before.HasAttendee(subject) {
		return eventrepo.Membership{Changed: false, Count: len(before.Attendees)}, nil
	}
	return eventrepo.Membership{Changed: true, Count: len(before.Attendees) - 1}, nil
}

// transition applies update atomically and returns the document as it was before.
func (r *Repo) transition(ctx context.Context, id domain.EventID, update bson.M) (eventrepo.Event, error) {
	var doc eventDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": string(id)},
		update,
		options.FindOneAndUpdate().
			SetReturnDocument(options.Before).
			SetProjection(bson.M{"attendees": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return eventrepo.Event{}, eventrepo.ErrNotFound
		}
		return eventrepo.Event{}, err
	}
	return doc.toPort(), nil
}

func (d eventDoc) toPort() eventrepo.Event {
	attendees := make([]domain.SubjectID, 0, len(d.Attendees))
	for _, a := range d.Attendees {
		attendees = append(attendees, domain.SubjectID(a))
	}
	return eventrepo.Event{
		ID:          domain.EventID(d.ID),
		Title:       d.Title,
		Description: d.Description,
		Details:     d.Details,
		Date:        d.Date,
		Image:       d.Image,
		CreatedBy:   domain.SubjectID(d.CreatedBy),
		Attendees:   attendees,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}
