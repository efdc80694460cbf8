package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnhandledEvent       = errors.New("unhandled event type")
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrTerminalPayment      = errors.New("payment already terminal")
	ErrInvalidAmount        = errors.New("invalid amount")
)

// Domain validation errors
const (
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeUnhandledEvent       = "UNHANDLED_EVENT"
	ErrCodeMalformedPayload     = "MALFORMED_PAYLOAD"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeTerminalPayment      = "PAYMENT_TERMINAL"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
)

func NewMissingFieldError(kind EventKind, field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s event requires %s", kind, field),
		Err:     ErrMissingRequiredField,
	}
}

func NewUnhandledEventError(eventType string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnhandledEvent,
		Message: fmt.Sprintf("event type %q is not handled", eventType),
		Err:     ErrUnhandledEvent,
	}
}

func NewMalformedPayloadError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeMalformedPayload,
		Message: "webhook payload is not valid JSON",
		Err:     errors.Join(ErrMalformedPayload, err),
	}
}

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Err:     ErrInvalidTransition,
	}
}

func NewTerminalPaymentError(paymentID string, current PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeTerminalPayment,
		Message: fmt.Sprintf("payment %s is already %s", paymentID, current),
		Err:     ErrTerminalPayment,
	}
}

func NewInvalidAmountError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: reason,
		Err:     ErrInvalidAmount,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
