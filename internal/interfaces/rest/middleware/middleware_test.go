package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/signature"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/interfaces/rest"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery_ReturnsJSON500(t *testing.T) {
	handler := middleware.Recovery(testhelpers.Logger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/payment", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp rest.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

func TestTimeout_Returns503(t *testing.T) {
	handler := middleware.Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "TIMEOUT")
}

func TestSignature_PassesVerifiedBodyThrough(t *testing.T) {
	body := []byte(`{"event_type":"payment.completed"}`)
	var seen []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := middleware.Signature(signature.NewVerifier("s3cret"), 1024, testhelpers.Logger())(next)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set(signature.HeaderName, signature.Sign(body, []byte("s3cret")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, body, seen)
}

func TestSignature_Rejections(t *testing.T) {
	body := []byte(`{}`)
	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"missing header", "", http.StatusBadRequest, "MISSING_SIGNATURE"},
		{"wrong secret", signature.Sign(body, []byte("other")), http.StatusUnauthorized, "INVALID_SIGNATURE"},
		{"not hex", "zz-not-hex", http.StatusUnauthorized, "INVALID_SIGNATURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := middleware.Signature(signature.NewVerifier("s3cret"), 1024, testhelpers.Logger())(
				http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }),
			)

			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
			if tt.header != "" {
				req.Header.Set(signature.HeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, tt.wantCode, rec.Code)
			var resp rest.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}
