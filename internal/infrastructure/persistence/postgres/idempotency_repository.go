package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrReservationVanished = errors.New("idempotency reservation disappeared during check")

type IdempotencyRepository struct {
	q     Executor
	lease time.Duration
	now   func() time.Time
}

func NewIdempotencyRepository(db *DB, lease time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{
		q:     db.Pool,
		lease: lease,
		now:   time.Now,
	}
}

// ShouldProcess reserves eventKey in a single statement. A row without an
// outcome whose lease has lapsed is taken over; anything else is a duplicate.
func (r *IdempotencyRepository) ShouldProcess(ctx context.Context, eventKey string) (domain.Reservation, error) {
	query := `
		INSERT INTO webhook_events (event_key, first_seen_at, locked_at, lock_token)
		VALUES ($1, $2, $2, $4)
		ON CONFLICT (event_key) DO UPDATE
			SET locked_at = EXCLUDED.locked_at,
			    lock_token = EXCLUDED.lock_token
			WHERE webhook_events.outcome_status IS NULL
			  AND (webhook_events.locked_at IS NULL OR webhook_events.locked_at < $3)
		RETURNING event_key
	`

	now := r.now().UTC()
	token := uuid.NewString()
	var key string
	err := r.q.QueryRow(ctx, query, eventKey, now, now.Add(-r.lease), token).Scan(&key)
	if err == nil {
		return domain.Reservation{Fresh: true, Token: token}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, fmt.Errorf("failed to reserve event key: %w", err)
	}

	row, err := r.find(ctx, eventKey)
	if err != nil {
		return domain.Reservation{}, err
	}
	return domain.Reservation{Fresh: false, Prior: row.outcome()}, nil
}

func (r *IdempotencyRepository) RecordOutcome(ctx context.Context, eventKey string, outcome domain.Outcome) error {
	query := `
		INSERT INTO webhook_events (event_key, first_seen_at, outcome_status, outcome_detail, recorded_at)
		VALUES ($1, $4, $2, NULLIF($3, ''), $4)
		ON CONFLICT (event_key) DO UPDATE
			SET outcome_status = EXCLUDED.outcome_status,
			    outcome_detail = EXCLUDED.outcome_detail,
			    recorded_at    = EXCLUDED.recorded_at,
			    locked_at      = NULL,
			    lock_token     = NULL
	`

	recordedAt := outcome.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = r.now().UTC()
	}

	_, err := r.q.Exec(ctx, query, eventKey, string(outcome.Status), outcome.Detail, recordedAt)
	if err != nil {
		return fmt.Errorf("failed to record event outcome: %w", err)
	}
	return nil
}

// Release drops a reservation whose dispatch failed, provided token still
// holds it. Recorded outcomes are kept.
func (r *IdempotencyRepository) Release(ctx context.Context, eventKey, token string) error {
	query := `DELETE FROM webhook_events WHERE event_key = $1 AND outcome_status IS NULL AND lock_token = $2`

	if _, err := r.q.Exec(ctx, query, eventKey, token); err != nil {
		return fmt.Errorf("failed to release event key: %w", err)
	}
	return nil
}

// PurgeBefore deletes at most limit records first seen before cutoff.
func (r *IdempotencyRepository) PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `
		DELETE FROM webhook_events
		WHERE event_key IN (
			SELECT event_key FROM webhook_events
			WHERE first_seen_at < $1
			ORDER BY first_seen_at
			LIMIT $2
		)
	`

	tag, err := r.q.Exec(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to purge webhook events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindByKey returns the stored record for eventKey.
func (r *IdempotencyRepository) FindByKey(ctx context.Context, eventKey string) (*domain.IdempotencyRecord, error) {
	row, err := r.find(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *IdempotencyRepository) find(ctx context.Context, eventKey string) (*webhookEvent, error) {
	query := `
		SELECT event_key, first_seen_at, locked_at, lock_token, outcome_status, outcome_detail, recorded_at
		FROM webhook_events
		WHERE event_key = $1
	`

	var e webhookEvent
	err := r.q.QueryRow(ctx, query, eventKey).Scan(
		&e.EventKey,
		&e.FirstSeenAt,
		&e.LockedAt,
		&e.LockToken,
		&e.OutcomeStatus,
		&e.OutcomeDetail,
		&e.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReservationVanished, eventKey)
		}
		return nil, fmt.Errorf("failed to load event key: %w", err)
	}
	return &e, nil
}
