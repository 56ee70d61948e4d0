// Package memory is an in-process visitor store for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
)

// InMemoryVisitorStore keeps visitors in a map guarded by one RWMutex.
// Callers always receive copies; stored records are never shared.
type InMemoryVisitorStore struct {
	mu       sync.RWMutex
	visitors map[string]*models.Visitor
}

func New() *InMemoryVisitorStore {
	return &InMemoryVisitorStore{visitors: make(map[string]*models.Visitor)}
}

func (s *InMemoryVisitorStore) Create(_ context.Context, v *models.Visitor) (*models.Visitor, error) {
	stored := clone(v)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors[stored.ID] = stored
	return clone(stored), nil
}

func (s *InMemoryVisitorStore) FindByID(_ context.Context, id string) (*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

func (s *InMemoryVisitorStore) FindPending(_ context.Context, from, to time.Time) ([]*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Visitor, 0)
	for _, v := range s.visitors {
		if v.ScheduledAt.Before(from) || !v.ScheduledAt.Before(to) {
			continue
		}
		if v.IsPending() {
			out = append(out, clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func (s *InMemoryVisitorStore) RecordVerification(_ context.Context, id string, verifiedAt time.Time, result models.VerificationResult) (*models.Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visitors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	at := verifiedAt
	r := cloneResult(&result)
	v.VerifiedAt = &at
	v.VerificationResult = r
	return clone(v), nil
}

func clone(v *models.Visitor) *models.Visitor {
	c := *v
	if v.VerifiedAt != nil {
		at := *v.VerifiedAt
		c.VerifiedAt = &at
	}
	c.VerificationResult = cloneResult(v.VerificationResult)
	return &c
}

func cloneResult(r *models.VerificationResult) *models.VerificationResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Match != nil {
		m := *r.Match
		c.Match = &m
	}
	if r.Confidence != nil {
		f := *r.Confidence
		c.Confidence = &f
	}
	if r.VerifiedImageRef != nil {
		s := *r.VerifiedImageRef
		c.VerifiedImageRef = &s
	}
	return &c
}
