// Package redisstore keeps idempotency reservations and payment states in
// Redis, with the retention window enforced by key TTLs.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "webhook:event:"
	pendingPrefix = "pending:"
)

// releaseScript deletes a key only while it still holds the caller's pending marker.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type IdempotencyStore struct {
	client    *redis.Client
	lease     time.Duration
	retention time.Duration
}

func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func NewIdempotencyStore(client *redis.Client, lease, retention time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client:    client,
		lease:     lease,
		retention: retention,
	}
}

// ShouldProcess reserves the key with SET NX. The pending marker carries a
// per-reservation token and expires after the lease so a crashed worker cannot
// block the event forever.
func (s *IdempotencyStore) ShouldProcess(ctx context.Context, eventKey string) (domain.Reservation, error) {
	key := keyPrefix + eventKey
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, pendingPrefix+token, s.lease).Result()
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("failed to reserve event key: %w", err)
	}
	if ok {
		return domain.Reservation{Fresh: true, Token: token}, nil
	}

	data, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Lease lapsed between SETNX and GET; the redelivery will reserve it.
		return domain.Reservation{Fresh: false}, nil
	}
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("failed to read event key: %w", err)
	}
	if strings.HasPrefix(data, pendingPrefix) {
		return domain.Reservation{Fresh: false}, nil
	}

	var outcome domain.Outcome
	if err := json.Unmarshal([]byte(data), &outcome); err != nil {
		return domain.Reservation{}, fmt.Errorf("failed to decode event outcome: %w", err)
	}
	return domain.Reservation{Fresh: false, Prior: &outcome}, nil
}

func (s *IdempotencyStore) RecordOutcome(ctx context.Context, eventKey string, outcome domain.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to encode event outcome: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+eventKey, data, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to record event outcome: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, eventKey, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{keyPrefix + eventKey}, pendingPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to release event key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
