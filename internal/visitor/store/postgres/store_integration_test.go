//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	pgplatform "github.com/cheya01/facial-recog-poc-server/internal/platform/postgres"
	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	visitorpg "github.com/cheya01/facial-recog-poc-server/internal/visitor/store/postgres"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
	"github.com/cheya01/facial-recog-poc-server/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *visitorpg.PostgresStore
	day      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(pgplatform.Migrate(context.Background(), s.postgres.DB))
	s.store = visitorpg.New(s.postgres.DB)
	s.day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "visitors"))
}

func (s *PostgresStoreSuite) create(name string, at time.Time) *models.Visitor {
	v, err := s.store.Create(context.Background(), &models.Visitor{
		FullName:          name,
		Email:             name + "@example.com",
		ScheduledAt:       at,
		ReferenceImageRef: "mem://" + name,
		RegisteredAt:      s.day,
	})
	s.Require().NoError(err)
	return v
}

func ptr[T any](v T) *T { return &v }

func (s *PostgresStoreSuite) TestFindByID() {
	ctx := context.Background()
	created := s.create("Ada", s.day.Add(9*time.Hour))

	found, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Ada", found.FullName)
	s.Equal("Ada@example.com", found.Email)
	s.Nil(found.VerifiedAt)
	s.Nil(found.VerificationResult)

	_, err = s.store.FindByID(ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByID(ctx, "not-a-uuid")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindPending() {
	ctx := context.Background()
	early := s.create("early", s.day.Add(8*time.Hour))
	noMatch := s.create("no-match", s.day.Add(10*time.Hour))
	rejected := s.create("rejected", s.day.Add(11*time.Hour))
	s.create("yesterday", s.day.Add(-time.Minute))
	s.create("tomorrow", s.day.Add(24*time.Hour))

	_, err := s.store.RecordVerification(ctx, noMatch.ID, s.day, models.VerificationResult{Remarks: models.RemarksManualPassed})
	s.Require().NoError(err)
	_, err = s.store.RecordVerification(ctx, rejected.ID, s.day, models.VerificationResult{Match: ptr(false), Remarks: models.RemarksManualFailed})
	s.Require().NoError(err)

	pending, err := s.store.FindPending(ctx, s.day, s.day.Add(24*time.Hour))
	s.Require().NoError(err)

	var ids []string
	for _, v := range pending {
		ids = append(ids, v.ID)
	}
	s.Equal([]string{early.ID, noMatch.ID}, ids)
}

func (s *PostgresStoreSuite) TestRecordVerificationOverwrites() {
	ctx := context.Background()
	v := s.create("Grace", s.day.Add(9*time.Hour))

	_, err := s.store.RecordVerification(ctx, v.ID, s.day.Add(9*time.Hour), models.VerificationResult{
		Match: ptr(true), Confidence: ptr(0.93), VerifiedImageRef: ptr("mem://cap"), Remarks: models.RemarksAutomatedPassed,
	})
	s.Require().NoError(err)

	at := s.day.Add(10 * time.Hour)
	updated, err := s.store.RecordVerification(ctx, v.ID, at, models.VerificationResult{
		Match: ptr(false), Remarks: models.RemarksManualFailed,
	})
	s.Require().NoError(err)
	s.Require().NotNil(updated.VerifiedAt)
	s.True(at.Equal(*updated.VerifiedAt))
	s.False(*updated.VerificationResult.Match)
	s.Nil(updated.VerificationResult.Confidence)
	s.Nil(updated.VerificationResult.VerifiedImageRef)

	_, err = s.store.RecordVerification(ctx, uuid.NewString(), at, models.VerificationResult{})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
