//go:build integration

package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	visitormongo "github.com/cheya01/facial-recog-poc-server/internal/visitor/store/mongo"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
	"github.com/cheya01/facial-recog-poc-server/pkg/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	store *visitormongo.Store
	day   time.Time
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	s.mongo = containers.NewMongoContainer(s.T())
	s.store = visitormongo.New(s.mongo.Database("visitor_test"))
	s.Require().NoError(s.store.EnsureIndexes(context.Background()))
	s.day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
}

func (s *MongoStoreSuite) TearDownSuite() {
	s.mongo.Terminate(context.Background())
}

func (s *MongoStoreSuite) SetupTest() {
	_, err := s.mongo.Database("visitor_test").Collection(visitormongo.CollectionName).DeleteMany(context.Background(), bson.M{})
	s.Require().NoError(err)
}

func (s *MongoStoreSuite) create(name string, at time.Time) *models.Visitor {
	v, err := s.store.Create(context.Background(), &models.Visitor{
		FullName:          name,
		ScheduledAt:       at,
		ReferenceImageRef: "mem://" + name,
		RegisteredAt:      s.day,
	})
	s.Require().NoError(err)
	return v
}

func ptr[T any](v T) *T { return &v }

func (s *MongoStoreSuite) TestFindByID() {
	ctx := context.Background()
	created := s.create("Ada", s.day.Add(9*time.Hour))

	found, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Ada", found.FullName)
	s.Nil(found.VerificationResult)

	_, err = s.store.FindByID(ctx, primitive.NewObjectID().Hex())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByID(ctx, "not-an-object-id")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestFindPending() {
	ctx := context.Background()
	coll := s.mongo.Database("visitor_test").Collection(visitormongo.CollectionName)

	early := s.create("early", s.day.Add(8*time.Hour))
	nullResult := s.create("null-result", s.day.Add(9*time.Hour))
	noMatch := s.create("no-match", s.day.Add(10*time.Hour))
	matched := s.create("matched", s.day.Add(11*time.Hour))
	s.create("yesterday", s.day.Add(-time.Minute))
	s.create("tomorrow", s.day.Add(24*time.Hour))

	nullOID, err := primitive.ObjectIDFromHex(nullResult.ID)
	s.Require().NoError(err)
	_, err = coll.UpdateByID(ctx, nullOID, bson.M{"$set": bson.M{"verificationResult": nil}})
	s.Require().NoError(err)

	_, err = s.store.RecordVerification(ctx, noMatch.ID, s.day, models.VerificationResult{Remarks: models.RemarksManualPassed})
	s.Require().NoError(err)
	_, err = s.store.RecordVerification(ctx, matched.ID, s.day, models.VerificationResult{Match: ptr(true), Remarks: models.RemarksAutomatedPassed})
	s.Require().NoError(err)

	pending, err := s.store.FindPending(ctx, s.day, s.day.Add(24*time.Hour))
	s.Require().NoError(err)

	var ids []string
	for _, v := range pending {
		ids = append(ids, v.ID)
	}
	s.Equal([]string{early.ID, nullResult.ID, noMatch.ID}, ids)
}

func (s *MongoStoreSuite) TestRecordVerificationReturnsPostImage() {
	ctx := context.Background()
	v := s.create("Grace", s.day.Add(9*time.Hour))
	at := s.day.Add(9 * time.Hour).Truncate(time.Millisecond)

	updated, err := s.store.RecordVerification(ctx, v.ID, at, models.VerificationResult{
		Match: ptr(false), Remarks: models.RemarksManualFailed,
	})
	s.Require().NoError(err)
	s.Require().NotNil(updated.VerifiedAt)
	s.True(at.Equal(*updated.VerifiedAt))
	s.False(*updated.VerificationResult.Match)
	s.Equal(models.RemarksManualFailed, updated.VerificationResult.Remarks)

	_, err = s.store.RecordVerification(ctx, primitive.NewObjectID().Hex(), at, models.VerificationResult{})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
