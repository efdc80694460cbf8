package rest_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/interfaces/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		hidden      string
	}{
		{
			name: "dispatch failure hides downstream body",
			err: application.NewDispatchFailedError(&application.DispatchError{
				Action:     application.ActionDeliverGiftCards,
				StatusCode: 502,
				Code:       "db_error",
				Message:    "pq: password authentication failed for user fulfil",
			}),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    application.ErrCodeDispatchFailed,
			wantMessage: "Fulfillment dispatch failed",
			hidden:      "password authentication",
		},
		{
			name:        "infrastructure error hides driver detail",
			err:         application.NewInternalError(errors.New("dial tcp 10.0.0.7:5432: connection refused")),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    application.ErrCodeInternal,
			wantMessage: "An internal error occurred",
			hidden:      "10.0.0.7",
		},
		{
			name:        "bare processor error is generic",
			err:         &application.ProcessorError{Code: application.ProcessorInternalError, StatusCode: 500, Message: "stack trace at handler.go:88"},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "An internal error occurred",
			hidden:      "handler.go",
		},
		{
			name:        "validation keeps the field name",
			err:         application.NewInvalidInputError(domain.NewMissingFieldError(domain.KindCardThreeDS, "card_id")),
			wantStatus:  http.StatusBadRequest,
			wantCode:    application.ErrCodeInvalidInput,
			wantMessage: "Invalid input: card.3ds event requires card_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rest.WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.hidden != "" {
				assert.NotContains(t, rec.Body.String(), tt.hidden)
			}

			var resp rest.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp.Error.Code)
			}
		})
	}
}
