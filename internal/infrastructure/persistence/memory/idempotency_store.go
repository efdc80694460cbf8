// Package memory holds in-process stores for development and tests. State is
// lost on restart and is not shared between replicas.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/google/uuid"
)

type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
	lease   time.Duration
	now     func() time.Time
}

func NewIdempotencyStore(lease time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]*domain.IdempotencyRecord),
		lease:   lease,
		now:     time.Now,
	}
}

func (s *IdempotencyStore) ShouldProcess(_ context.Context, eventKey string) (domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	token := uuid.NewString()
	rec, ok := s.records[eventKey]
	if !ok {
		s.records[eventKey] = &domain.IdempotencyRecord{EventKey: eventKey, FirstSeenAt: now, LockedAt: &now, LockToken: token}
		return domain.Reservation{Fresh: true, Token: token}, nil
	}

	if rec.Outcome != nil {
		prior := *rec.Outcome
		return domain.Reservation{Prior: &prior}, nil
	}

	if rec.LockedAt == nil || now.Sub(*rec.LockedAt) > s.lease {
		rec.LockedAt = &now
		rec.LockToken = token
		return domain.Reservation{Fresh: true, Token: token}, nil
	}
	return domain.Reservation{}, nil
}

func (s *IdempotencyStore) RecordOutcome(_ context.Context, eventKey string, outcome domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[eventKey]
	if !ok {
		rec = &domain.IdempotencyRecord{EventKey: eventKey, FirstSeenAt: s.now()}
		s.records[eventKey] = rec
	}
	rec.Outcome = &outcome
	rec.LockedAt = nil
	rec.LockToken = ""
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, eventKey, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[eventKey]; ok && rec.Outcome == nil && rec.LockToken == token {
		delete(s.records, eventKey)
	}
	return nil
}

func (s *IdempotencyStore) PurgeBefore(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for key, rec := range s.records {
		if purged >= int64(limit) {
			break
		}
		if rec.FirstSeenAt.Before(cutoff) {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}
