// Package domain encodes the webhook events and payment lifecycle of the gift-card storefront
package domain

import (
	"errors"
	"slices"
	"time"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusExpired   PaymentStatus = "expired"
)

// PaymentState is the last known processor state of a payment.
type PaymentState struct {
	PaymentID string
	OrderID   string
	Status    PaymentStatus
	UpdatedAt time.Time
}

func NewPaymentState(paymentID, orderID string) (*PaymentState, error) {
	if paymentID == "" {
		return nil, errors.New("payment ID is required")
	}

	return &PaymentState{
		PaymentID: paymentID,
		OrderID:   orderID,
		Status:    StatusPending,
		UpdatedAt: time.Now(),
	}, nil
}

func (p *PaymentState) Complete() error {
	return p.transition(StatusCompleted)
}

func (p *PaymentState) Fail() error {
	return p.transition(StatusFailed)
}

func (p *PaymentState) Expire() error {
	return p.transition(StatusExpired)
}

// TransitionTo moves the payment to target, rejecting any move out of a terminal state.
func (p *PaymentState) TransitionTo(target PaymentStatus) error {
	return p.transition(target)
}

func (p *PaymentState) transition(target PaymentStatus) error {
	if p.IsTerminal() {
		return NewTerminalPaymentError(p.PaymentID, p.Status)
	}
	if err := p.canTransitionTo(target); err != nil {
		return err
	}
	p.Status = target
	p.UpdatedAt = time.Now()
	return nil
}

func (p *PaymentState) canTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case StatusPending:
		return p.allow(target, StatusCompleted, StatusFailed, StatusExpired)
	}
	return NewInvalidTransitionError(p.Status, target)
}

func (p *PaymentState) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(p.Status, target)
}

// IsTerminal reports whether no further transition is valid.
func (p *PaymentState) IsTerminal() bool {
	return p.Status.IsTerminal()
}

func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// OrderStatus is what the order record shows for a payment status.
// Expiry and explicit failure are not distinguished downstream.
func (s PaymentStatus) OrderStatus() string {
	switch s {
	case StatusFailed, StatusExpired:
		return "failed"
	default:
		return string(s)
	}
}

// TransferStatus is the status of a SEPA transfer as mirrored downstream.
type TransferStatus string

const (
	TransferProcessing TransferStatus = "processing"
	TransferCompleted  TransferStatus = "completed"
	TransferFailed     TransferStatus = "failed"
)

func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferFailed
}
