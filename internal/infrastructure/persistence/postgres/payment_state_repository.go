package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PaymentStateRepository struct {
	q  Executor
	tx *TransactionCoordinator
}

func NewPaymentStateRepository(db *DB) *PaymentStateRepository {
	return &PaymentStateRepository{
		q:  db.Pool,
		tx: NewTransactionCoordinator(db),
	}
}

// Status returns the recorded status, or pending for a payment never seen.
func (r *PaymentStateRepository) Status(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	var status string
	err := r.q.QueryRow(ctx, `SELECT status FROM payment_states WHERE payment_id = $1`, paymentID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StatusPending, nil
		}
		return "", fmt.Errorf("failed to load payment state: %w", err)
	}
	return domain.PaymentStatus(status), nil
}

// Transition applies the lifecycle rules under a row lock so concurrent
// events for one payment serialise.
func (r *PaymentStateRepository) Transition(ctx context.Context, paymentID, orderID string, target domain.PaymentStatus) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO payment_states (payment_id, order_id, status, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (payment_id) DO NOTHING
		`, paymentID, orderID, string(domain.StatusPending), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to seed payment state: %w", err)
		}

		state, err := scanPaymentState(tx.QueryRow(ctx, `
			SELECT payment_id, order_id, status, updated_at
			FROM payment_states
			WHERE payment_id = $1
			FOR UPDATE
		`, paymentID))
		if err != nil {
			return err
		}

		if err := state.TransitionTo(target); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE payment_states SET status = $2, updated_at = $3 WHERE payment_id = $1
		`, paymentID, string(state.Status), state.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to update payment state: %w", err)
		}
		return nil
	})
}

// Revert puts a claimed payment back to pending. The status guard keeps it
// from touching a payment another event has since settled.
func (r *PaymentStateRepository) Revert(ctx context.Context, paymentID string, claimed domain.PaymentStatus) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payment_states SET status = $3, updated_at = $4
		WHERE payment_id = $1 AND status = $2
	`, paymentID, string(claimed), string(domain.StatusPending), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revert payment state: %w", err)
	}
	return nil
}

// FindByID returns the stored state, or nil when the payment is unknown.
func (r *PaymentStateRepository) FindByID(ctx context.Context, paymentID string) (*domain.PaymentState, error) {
	state, err := scanPaymentState(r.q.QueryRow(ctx, `
		SELECT payment_id, order_id, status, updated_at
		FROM payment_states
		WHERE payment_id = $1
	`, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return state, err
}

func scanPaymentState(row pgx.Row) (*domain.PaymentState, error) {
	var (
		state  domain.PaymentState
		status string
	)
	if err := row.Scan(&state.PaymentID, &state.OrderID, &status, &state.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payment state: %w", err)
	}
	state.Status = domain.PaymentStatus(status)
	return &state, nil
}
