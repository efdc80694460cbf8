package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeMissingSignature  = "MISSING_SIGNATURE"
	ErrCodeInvalidSignature  = "INVALID_SIGNATURE"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	ErrCodeDispatchFailed    = "DISPATCH_FAILED"
	ErrCodePaymentNotSettled = "PAYMENT_NOT_SETTLED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

func NewMissingSignatureError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMissingSignature,
		Message:    "Missing webhook signature header",
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInvalidSignatureError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidSignature,
		Message:    "Webhook signature does not match",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewPayloadTooLargeError(limit int64) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayloadTooLarge,
		Message:    fmt.Sprintf("Request body exceeds %d bytes", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

func NewDispatchFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeDispatchFailed,
		Message:    "Fulfillment dispatch failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewPaymentNotSettledError(paymentID, status string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePaymentNotSettled,
		Message:    fmt.Sprintf("processor reports payment %s as %q", paymentID, status),
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
