// Package mongo persists visitors as documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
)

// CollectionName is where visitor documents live.
const CollectionName = "visitors"

// document is the stored shape: the visitor fields plus an ObjectID key.
type document struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	models.Visitor `bson:",inline"`
}

func (d *document) toModel() *models.Visitor {
	v := d.Visitor
	v.ID = d.ID.Hex()
	return &v
}

// Store is a MongoDB-backed visitor store.
type Store struct {
	coll *mongodriver.Collection
}

func New(db *mongodriver.Database) *Store {
	return &Store{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the index backing the pending listing.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "scheduledAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create visitor indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, v *models.Visitor) (*models.Visitor, error) {
	doc := document{ID: primitive.NewObjectID(), Visitor: *v}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert visitor: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.Visitor, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}

	var doc document
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find visitor by id: %w", err)
	}
	return doc.toModel(), nil
}

// pendingFilter selects visitors scheduled in [from, to) that have no
// verification result, a null one, or one without a match decision.
func pendingFilter(from, to time.Time) bson.M {
	return bson.M{
		"scheduledAt": bson.M{"$gte": from, "$lt": to},
		"$or": bson.A{
			bson.M{"verificationResult": bson.M{"$exists": false}},
			bson.M{"verificationResult": nil},
			bson.M{"verificationResult.match": bson.M{"$exists": false}},
		},
	}
}

func (s *Store) FindPending(ctx context.Context, from, to time.Time) ([]*models.Visitor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}})
	cur, err := s.coll.Find(ctx, pendingFilter(from, to), opts)
	if err != nil {
		return nil, fmt.Errorf("find pending visitors: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*models.Visitor, 0)
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode pending visitor: %w", err)
		}
		out = append(out, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending visitors: %w", err)
	}
	return out, nil
}

func (s *Store) RecordVerification(ctx context.Context, id string, verifiedAt time.Time, result models.VerificationResult) (*models.Visitor, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"verifiedAt":         verifiedAt,
		"verificationResult": result,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc document
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("record verification: %w", err)
	}
	return doc.toModel(), nil
}
