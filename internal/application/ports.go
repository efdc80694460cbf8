package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

// Dispatcher is the port for the downstream fulfillment service.
type Dispatcher interface {
	Dispatch(ctx context.Context, action DispatchAction, payload any) (*DispatchResponse, error)
}

// IdempotencyStore guards event keys. ShouldProcess must check and reserve in
// one atomic step. Release only drops the reservation identified by token, so
// a holder whose lease lapsed cannot free a key another delivery took over.
type IdempotencyStore interface {
	ShouldProcess(ctx context.Context, eventKey string) (domain.Reservation, error)
	RecordOutcome(ctx context.Context, eventKey string, outcome domain.Outcome) error
	Release(ctx context.Context, eventKey, token string) error
}

// IdempotencyPurger removes records past their retention window.
type IdempotencyPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// PaymentStateRepository persists the last known state of each payment.
// Transition doubles as the claim taken before dispatching; Revert undoes a
// claim whose dispatch failed and is a no-op once the status is not claimed.
type PaymentStateRepository interface {
	Status(ctx context.Context, paymentID string) (domain.PaymentStatus, error)
	Transition(ctx context.Context, paymentID, orderID string, target domain.PaymentStatus) error
	Revert(ctx context.Context, paymentID string, claimed domain.PaymentStatus) error
}

// ProcessorClient is the port for the crypto payment processor API.
type ProcessorClient interface {
	GetPayment(ctx context.Context, paymentID string) (*ProcessorPayment, error)
}

// EventPublisher announces processed webhook events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}
