package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
)

type InMemoryVisitorStoreSuite struct {
	suite.Suite
	store *InMemoryVisitorStore
	ctx   context.Context
	day   time.Time
}

func TestInMemoryVisitorStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryVisitorStoreSuite))
}

func (s *InMemoryVisitorStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryVisitorStoreSuite) create(name string, scheduledAt time.Time) *models.Visitor {
	v, err := s.store.Create(s.ctx, &models.Visitor{
		FullName:          name,
		ScheduledAt:       scheduledAt,
		ReferenceImageRef: "mem://" + name,
		RegisteredAt:      s.day,
	})
	s.Require().NoError(err)
	return v
}

func ptr[T any](v T) *T { return &v }

func (s *InMemoryVisitorStoreSuite) TestCreateAndFind() {
	s.Run("assigns an id and returns a copy", func() {
		created := s.create("Ada", s.day.Add(9*time.Hour))
		s.Require().NotEmpty(created.ID)

		created.FullName = "mutated"
		found, err := s.store.FindByID(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal("Ada", found.FullName)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryVisitorStoreSuite) TestFindPending() {
	early := s.create("early", s.day.Add(8*time.Hour))
	late := s.create("late", s.day.Add(17*time.Hour))
	s.create("midnight-before", s.day.Add(-time.Nanosecond))
	s.create("next-day", s.day.Add(24*time.Hour))
	matched := s.create("matched", s.day.Add(10*time.Hour))
	rejected := s.create("rejected", s.day.Add(11*time.Hour))
	noMatchField := s.create("no-match-field", s.day.Add(12*time.Hour))

	_, err := s.store.RecordVerification(s.ctx, matched.ID, s.day, models.VerificationResult{
		Match: ptr(true), Confidence: ptr(0.9), Remarks: models.RemarksAutomatedPassed,
	})
	s.Require().NoError(err)
	_, err = s.store.RecordVerification(s.ctx, rejected.ID, s.day, models.VerificationResult{
		Match: ptr(false), Remarks: models.RemarksManualFailed,
	})
	s.Require().NoError(err)
	_, err = s.store.RecordVerification(s.ctx, noMatchField.ID, s.day, models.VerificationResult{
		Remarks: models.RemarksManualPassed,
	})
	s.Require().NoError(err)

	pending, err := s.store.FindPending(s.ctx, s.day, s.day.Add(24*time.Hour))
	s.Require().NoError(err)

	var ids []string
	for _, v := range pending {
		ids = append(ids, v.ID)
	}
	s.Equal([]string{early.ID, noMatchField.ID, late.ID}, ids)
}

func (s *InMemoryVisitorStoreSuite) TestFindPendingEmpty() {
	pending, err := s.store.FindPending(s.ctx, s.day, s.day.Add(24*time.Hour))
	s.Require().NoError(err)
	s.NotNil(pending)
	s.Empty(pending)
}

func (s *InMemoryVisitorStoreSuite) TestRecordVerification() {
	s.Run("sets result and timestamp together and overwrites", func() {
		v := s.create("Grace", s.day.Add(9*time.Hour))
		first := s.day.Add(9 * time.Hour)
		_, err := s.store.RecordVerification(s.ctx, v.ID, first, models.VerificationResult{
			Match: ptr(true), Confidence: ptr(0.8), VerifiedImageRef: ptr("mem://cap"), Remarks: models.RemarksAutomatedPassed,
		})
		s.Require().NoError(err)

		second := first.Add(time.Hour)
		updated, err := s.store.RecordVerification(s.ctx, v.ID, second, models.VerificationResult{
			Match: ptr(false), Remarks: models.RemarksManualFailed,
		})
		s.Require().NoError(err)
		s.Require().NotNil(updated.VerifiedAt)
		s.True(second.Equal(*updated.VerifiedAt))
		s.False(*updated.VerificationResult.Match)
		s.Nil(updated.VerificationResult.Confidence)
		s.Nil(updated.VerificationResult.VerifiedImageRef)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.RecordVerification(s.ctx, "missing", s.day, models.VerificationResult{})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryVisitorStoreSuite) TestConcurrentWritesLastWins() {
	v := s.create("race", s.day.Add(9*time.Hour))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.store.RecordVerification(s.ctx, v.ID, s.day, models.VerificationResult{
				Match: ptr(i%2 == 0), Remarks: models.RemarksManualPassed,
			})
		}(i)
	}
	wg.Wait()

	found, err := s.store.FindByID(s.ctx, v.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.VerificationResult)
	s.NotNil(found.VerificationResult.Match)
}
