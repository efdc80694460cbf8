package postgres

import (
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

// webhookEvent is a row of webhook_events. The unique event_key gives
// at-most-once reservation; locked_at bounds how long a reservation without
// an outcome blocks redeliveries and lock_token names its current holder.
type webhookEvent struct {
	EventKey      string
	FirstSeenAt   time.Time
	LockedAt      *time.Time
	LockToken     *string
	OutcomeStatus *string
	OutcomeDetail *string
	RecordedAt    *time.Time
}

func (e webhookEvent) toDomain() *domain.IdempotencyRecord {
	rec := &domain.IdempotencyRecord{
		EventKey:    e.EventKey,
		FirstSeenAt: e.FirstSeenAt,
		LockedAt:    e.LockedAt,
	}
	if e.LockToken != nil {
		rec.LockToken = *e.LockToken
	}
	rec.Outcome = e.outcome()
	return rec
}

func (e webhookEvent) outcome() *domain.Outcome {
	if e.OutcomeStatus == nil {
		return nil
	}
	out := &domain.Outcome{Status: domain.OutcomeStatus(*e.OutcomeStatus)}
	if e.OutcomeDetail != nil {
		out.Detail = *e.OutcomeDetail
	}
	if e.RecordedAt != nil {
		out.RecordedAt = *e.RecordedAt
	}
	return out
}
