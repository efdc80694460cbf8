package application

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProcessorPayment is the processor's own view of a payment.
type ProcessorPayment struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	OrderID  string          `json:"order_id"`
}

// ProcessorErrorCode enumerates the error codes documented by the processor API.
type ProcessorErrorCode string

const (
	ProcessorInvalidAPIKey   ProcessorErrorCode = "invalid_api_key"
	ProcessorPaymentNotFound ProcessorErrorCode = "payment_not_found"
	ProcessorInvalidRequest  ProcessorErrorCode = "invalid_request"
	ProcessorRateLimited     ProcessorErrorCode = "rate_limited"
	ProcessorInternalError   ProcessorErrorCode = "internal_error"
	ProcessorUnknownError    ProcessorErrorCode = "unknown_error"
)

var knownProcessorCodes = map[ProcessorErrorCode]struct{}{
	ProcessorInvalidAPIKey:   {},
	ProcessorPaymentNotFound: {},
	ProcessorInvalidRequest:  {},
	ProcessorRateLimited:     {},
	ProcessorInternalError:   {},
}

// ParseProcessorErrorCode maps a raw code onto the enumeration.
func ParseProcessorErrorCode(raw string) ProcessorErrorCode {
	code := ProcessorErrorCode(raw)
	if _, ok := knownProcessorCodes[code]; ok {
		return code
	}
	return ProcessorUnknownError
}

type ProcessorError struct {
	Code       ProcessorErrorCode
	Message    string
	StatusCode int
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *ProcessorError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.Code == ProcessorRateLimited || e.Code == ProcessorInternalError
}

func IsProcessorError(err error) (*ProcessorError, bool) {
	var procErr *ProcessorError
	ok := errors.As(err, &procErr)
	return procErr, ok
}
