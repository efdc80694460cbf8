package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	paymentKeyPrefix      = "payment:state:"
	maxTransitionAttempts = 5
)

var ErrTransitionContention = errors.New("payment state changed concurrently too many times")

// revertScript resets the status only while it still holds the claimed value.
var revertScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "status") == ARGV[1] then
	return redis.call("HSET", KEYS[1], "status", ARGV[2], "updated_at", ARGV[3])
end
return 0
`)

// PaymentStateStore keeps payment states in hashes. Transitions use
// WATCH/MULTI so two replicas cannot both leave pending.
type PaymentStateStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewPaymentStateStore(client *redis.Client, retention time.Duration) *PaymentStateStore {
	return &PaymentStateStore{client: client, retention: retention}
}

func (s *PaymentStateStore) Status(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	status, err := s.client.HGet(ctx, paymentKeyPrefix+paymentID, "status").Result()
	if errors.Is(err, redis.Nil) {
		return domain.StatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read payment state: %w", err)
	}
	return domain.PaymentStatus(status), nil
}

func (s *PaymentStateStore) Transition(ctx context.Context, paymentID, orderID string, target domain.PaymentStatus) error {
	key := paymentKeyPrefix + paymentID

	txf := func(tx *redis.Tx) error {
		state, err := domain.NewPaymentState(paymentID, orderID)
		if err != nil {
			return err
		}

		current, err := tx.HGet(ctx, key, "status").Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			state.Status = domain.PaymentStatus(current)
		}

		if err := state.TransitionTo(target); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"status", string(state.Status),
				"order_id", orderID,
				"updated_at", state.UpdatedAt.UTC().Format(time.RFC3339Nano),
			)
			pipe.Expire(ctx, key, s.retention)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var domainErr *domain.DomainError
			if errors.As(err, &domainErr) {
				return err
			}
			return fmt.Errorf("failed to transition payment state: %w", err)
		}
		return nil
	}
	return ErrTransitionContention
}

func (s *PaymentStateStore) Revert(ctx context.Context, paymentID string, claimed domain.PaymentStatus) error {
	args := []any{string(claimed), string(domain.StatusPending), time.Now().UTC().Format(time.RFC3339Nano)}
	if err := revertScript.Run(ctx, s.client, []string{paymentKeyPrefix + paymentID}, args...).Err(); err != nil {
		return fmt.Errorf("failed to revert payment state: %w", err)
	}
	return nil
}
