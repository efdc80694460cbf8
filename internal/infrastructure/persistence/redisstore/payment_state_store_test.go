package redisstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPaymentStates(t *testing.T) (*miniredis.Miniredis, *PaymentStateStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewPaymentStateStore(client, 24*time.Hour)
}

func TestPaymentStateStore_UnknownIsPending(t *testing.T) {
	_, store := setupPaymentStates(t)

	status, err := store.Status(context.Background(), "pay_unknown")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, status)
}

func TestPaymentStateStore_TransitionOnce(t *testing.T) {
	mr, store := setupPaymentStates(t)
	ctx := context.Background()

	require.NoError(t, store.Transition(ctx, "pay_1", "ord_1", domain.StatusCompleted))

	status, err := store.Status(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
	assert.Equal(t, "ord_1", mr.HGet(paymentKeyPrefix+"pay_1", "order_id"))
	assert.Equal(t, 24*time.Hour, mr.TTL(paymentKeyPrefix+"pay_1"))

	err = store.Transition(ctx, "pay_1", "ord_1", domain.StatusFailed)
	assert.ErrorIs(t, err, domain.ErrTerminalPayment)

	status, err = store.Status(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
}

func TestPaymentStateStore_ConcurrentTerminalEvents(t *testing.T) {
	_, store := setupPaymentStates(t)
	ctx := context.Background()

	targets := []domain.PaymentStatus{domain.StatusCompleted, domain.StatusFailed, domain.StatusExpired}
	var (
		wg      sync.WaitGroup
		applied atomic.Int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(target domain.PaymentStatus) {
			defer wg.Done()
			if err := store.Transition(ctx, "pay_race", "ord_race", target); err == nil {
				applied.Add(1)
			}
		}(targets[i%len(targets)])
	}
	wg.Wait()

	assert.Equal(t, int32(1), applied.Load())
}

func TestPaymentStateStore_Revert(t *testing.T) {
	mr, store := setupPaymentStates(t)
	ctx := context.Background()

	require.NoError(t, store.Transition(ctx, "pay_1", "ord_1", domain.StatusCompleted))
	require.NoError(t, store.Revert(ctx, "pay_1", domain.StatusCompleted))
	assert.Equal(t, "pending", mr.HGet(paymentKeyPrefix+"pay_1", "status"))

	require.NoError(t, store.Transition(ctx, "pay_1", "ord_1", domain.StatusExpired))
	require.NoError(t, store.Revert(ctx, "pay_1", domain.StatusCompleted))

	status, err := store.Status(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, status)

	require.NoError(t, store.Revert(ctx, "pay_missing", domain.StatusCompleted))
	assert.False(t, mr.Exists(paymentKeyPrefix+"pay_missing"))
}
