package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// EventKind tags the variant carried by a normalized Event.
type EventKind string

const (
	KindPaymentCompleted       EventKind = "payment.completed"
	KindPaymentFailed          EventKind = "payment.failed"
	KindPaymentExpired         EventKind = "payment.expired"
	KindSepaTransferCompleted  EventKind = "sepa_transfer.completed"
	KindSepaTransferFailed     EventKind = "sepa_transfer.failed"
	KindSepaTransferProcessing EventKind = "sepa_transfer.processing"
	KindCardThreeDS            EventKind = "card.3ds"
	KindCardActivation         EventKind = "card.activation"
)

func (k EventKind) IsPayment() bool {
	return k == KindPaymentCompleted || k == KindPaymentFailed || k == KindPaymentExpired
}

func (k EventKind) IsSepa() bool {
	return k == KindSepaTransferCompleted || k == KindSepaTransferFailed || k == KindSepaTransferProcessing
}

func (k EventKind) IsCard() bool {
	return k == KindCardThreeDS || k == KindCardActivation
}

// PaymentStatus is the lifecycle target of a payment event.
func (k EventKind) PaymentStatus() PaymentStatus {
	switch k {
	case KindPaymentCompleted:
		return StatusCompleted
	case KindPaymentFailed:
		return StatusFailed
	case KindPaymentExpired:
		return StatusExpired
	}
	return ""
}

// TransferStatus is the status forwarded for a SEPA event.
func (k EventKind) TransferStatus() TransferStatus {
	switch k {
	case KindSepaTransferCompleted:
		return TransferCompleted
	case KindSepaTransferFailed:
		return TransferFailed
	case KindSepaTransferProcessing:
		return TransferProcessing
	}
	return ""
}

// Event is the canonical form of every processor webhook. Which identifier
// fields are populated depends on Kind; Validate enforces it.
type Event struct {
	Kind      EventKind
	EventType string

	PaymentID      string
	TransferID     string
	ExternalUserID string
	CardID         string

	OrderID string
	Amount  *Money
	Status  string
	Code    string

	CustomerID    string
	CustomerEmail string
	Items         []LineItem
	Metadata      map[string]any
}

// Key derives the idempotency key of the event. Two deliveries that only
// differ in wrapping metadata share a key. Card codes enter the key as a
// SHA-256 digest since the key is logged, stored and published.
func (e *Event) Key() string {
	switch {
	case e.Kind.IsPayment():
		return fmt.Sprintf("payment:%s:%s", e.PaymentID, e.Kind.PaymentStatus())
	case e.Kind.IsSepa():
		return fmt.Sprintf("sepa:%s:%s", e.TransferID, e.Kind.TransferStatus())
	case e.Kind == KindCardThreeDS:
		return fmt.Sprintf("card-3ds:%s:%s:%s", e.ExternalUserID, e.CardID, codeDigest(e.Code))
	case e.Kind == KindCardActivation:
		return fmt.Sprintf("card-activation:%s:%s:%s", e.ExternalUserID, e.CardID, codeDigest(e.Code))
	}
	return ""
}

func codeDigest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Validate checks the event carries enough to be deduplicated and routed.
func (e *Event) Validate() error {
	switch {
	case e.Kind.IsPayment():
		if e.PaymentID == "" {
			return NewMissingFieldError(e.Kind, "payment_id")
		}
		if e.OrderID == "" {
			return NewMissingFieldError(e.Kind, "order_id")
		}
		if e.Kind == KindPaymentCompleted {
			if e.Amount == nil {
				return NewMissingFieldError(e.Kind, "amount")
			}
			if _, err := NewMoney(e.Amount.Amount, e.Amount.Currency); err != nil {
				if e.Amount.Currency == "" {
					return NewMissingFieldError(e.Kind, "currency")
				}
				return err
			}
		}
	case e.Kind.IsSepa():
		if e.TransferID == "" {
			return NewMissingFieldError(e.Kind, "transfer_id")
		}
	case e.Kind.IsCard():
		if e.ExternalUserID == "" {
			return NewMissingFieldError(e.Kind, "external_user_id")
		}
		if e.Code == "" {
			return NewMissingFieldError(e.Kind, "code")
		}
		if e.Kind == KindCardActivation && e.CardID == "" {
			return NewMissingFieldError(e.Kind, "card_id")
		}
	default:
		return NewUnhandledEventError(string(e.Kind))
	}
	return nil
}
