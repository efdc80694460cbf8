package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

type SuccessResponse struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	EventKey  string `json:"event_key,omitempty"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteError maps application errors to HTTP responses. Only the top-level
// message is exposed; wrapped downstream and driver detail stays in the logs.
func WriteError(w http.ResponseWriter, err error) {
	statusCode := application.ToHTTPStatus(err)

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    application.ToErrorCode(err),
			Message: publicMessage(err, statusCode),
		},
	}

	writeJSON(w, statusCode, response)
}

func publicMessage(err error, statusCode int) string {
	var domainErr *domain.DomainError

	if svcErr, ok := application.IsServiceError(err); ok {
		if statusCode < http.StatusInternalServerError && errors.As(svcErr.Err, &domainErr) {
			return svcErr.Message + ": " + domainErr.Message
		}
		return svcErr.Message
	}

	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	if statusCode >= http.StatusInternalServerError {
		return "An internal error occurred"
	}
	return http.StatusText(statusCode)
}

// WriteSuccess acknowledges a webhook with 200.
func WriteSuccess(w http.ResponseWriter, resp SuccessResponse) {
	resp.Success = true
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
