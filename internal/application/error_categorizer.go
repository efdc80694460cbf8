package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryAuthentication ErrorCategory = "AUTHENTICATION"
	CategoryValidation     ErrorCategory = "VALIDATION"
	CategoryIgnorable      ErrorCategory = "IGNORABLE"
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrUnhandledEvent) || errors.Is(err, domain.ErrTerminalPayment) {
		return CategoryIgnorable
	}

	if errors.Is(err, domain.ErrMissingRequiredField) ||
		errors.Is(err, domain.ErrMalformedPayload) ||
		errors.Is(err, domain.ErrInvalidAmount) {
		return CategoryValidation
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeMissingSignature, ErrCodeInvalidSignature:
			return CategoryAuthentication
		case ErrCodeInvalidInput, ErrCodePayloadTooLarge:
			return CategoryValidation
		case ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeTimeout, ErrCodePaymentNotSettled:
			return CategoryTransient
		}
	}

	if dispatchErr, ok := IsDispatchError(err); ok {
		if dispatchErr.StatusCode == 0 || dispatchErr.StatusCode >= 500 || dispatchErr.StatusCode == http.StatusTooManyRequests {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	if procErr, ok := IsProcessorError(err); ok {
		if procErr.IsRetryable() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	// Default: Transient (safe fallback)
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrUnhandledEvent),
		errors.Is(err, domain.ErrTerminalPayment):
		return http.StatusOK
	case errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrMalformedPayload),
		errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	}

	// Downstream and processor failures are ours to retry, never the caller's fault.
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if dispatchErr, ok := IsDispatchError(err); ok {
		if dispatchErr.Code != "" {
			return "DISPATCH_" + strings.ToUpper(dispatchErr.Code)
		}
		return ErrCodeDispatchFailed
	}

	if procErr, ok := IsProcessorError(err); ok {
		return "PROCESSOR_" + strings.ToUpper(string(procErr.Code))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}
