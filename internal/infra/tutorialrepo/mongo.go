package tutorialrepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/pkg/util"
)

// CollectionName is the MongoDB collection holding tutorials.
const CollectionName = "tutorials"

type mongoTutorial struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Published   bool               `bson:"published"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (m mongoTutorial) toDomain() tutorial.Tutorial {
	return tutorial.Tutorial{
		ID:          m.ID.Hex(),
		Title:       m.Title,
		Description: m.Description,
		Published:   m.Published,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// MongoRepository implements tutorial.Repository on a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepository constructs the repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName), now: util.NowUTC}
}

// Create inserts a new document.
func (r *MongoRepository) Create(ctx context.Context, t tutorial.Tutorial) (tutorial.Tutorial, error) {
	doc := mongoTutorial{
		Title:       t.Title,
		Description: t.Description,
		Published:   t.Published,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return tutorial.Tutorial{}, fmt.Errorf("insert tutorial: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return tutorial.Tutorial{}, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = id
	return doc.toDomain(), nil
}

// List finds documents matching the filter, oldest first.
func (r *MongoRepository) List(ctx context.Context, filter tutorial.Filter) ([]tutorial.Tutorial, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, mongoListFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find tutorials: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoTutorial
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tutorials: %w", err)
	}
	out := make([]tutorial.Tutorial, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Get fetches by ObjectID hex. Malformed ids are reported as missing.
func (r *MongoRepository) Get(ctx context.Context, id string) (tutorial.Tutorial, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return tutorial.Tutorial{}, false, nil
	}
	var doc mongoTutorial
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return tutorial.Tutorial{}, false, nil
		}
		return tutorial.Tutorial{}, false, fmt.Errorf("find tutorial: %w", err)
	}
	return doc.toDomain(), true, nil
}

// Update applies a $set with the provided fields and returns the new document.
func (r *MongoRepository) Update(ctx context.Context, id string, input tutorial.UpdateInput) (tutorial.Tutorial, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return tutorial.Tutorial{}, false, nil
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoTutorial
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, mongoUpdate(input, r.now()), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return tutorial.Tutorial{}, false, nil
		}
		return tutorial.Tutorial{}, false, fmt.Errorf("update tutorial: %w", err)
	}
	return doc.toDomain(), true, nil
}

// Delete removes one document.
func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete tutorial: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteAll empties the collection.
func (r *MongoRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("delete tutorials: %w", err)
	}
	return res.DeletedCount, nil
}

func mongoListFilter(filter tutorial.Filter) bson.M {
	query := bson.M{}
	if filter.Title != "" {
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Title), Options: "i"}
	}
	if filter.Published != nil {
		query["published"] = *filter.Published
	}
	return query
}

func mongoUpdate(input tutorial.UpdateInput, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Published != nil {
		set["published"] = *input.Published
	}
	return bson.M{"$set": set}
}

var _ tutorial.Repository = (*MongoRepository)(nil)
