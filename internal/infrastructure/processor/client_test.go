package processor_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/config"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newServerClient(t *testing.T, handler http.HandlerFunc) *processor.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return processor.NewClient(config.ProcessorConfig{
		APIKey:         "pk_test",
		BaseURL:        "http://production.invalid",
		SandboxBaseURL: srv.URL,
		Timeout:        2 * time.Second,
	}, config.EnvSandbox)
}

func TestHTTPClient_GetPayment(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/pay_1", r.URL.Path)
		assert.Equal(t, "pk_test", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"id":"pay_1","status":"completed","amount":"100.00","currency":"USDC","order_id":"ord_1"}`))
	})

	payment, err := client.GetPayment(context.Background(), "pay_1")
	require.NoError(t, err)

	assert.Equal(t, "pay_1", payment.ID)
	assert.Equal(t, "completed", payment.Status)
	assert.Equal(t, "100", payment.Amount.String())
	assert.Equal(t, "ord_1", payment.OrderID)
}

func TestHTTPClient_TypedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   application.ProcessorErrorCode
	}{
		{"documented code", http.StatusNotFound, `{"code":"payment_not_found","message":"no such payment"}`, application.ProcessorPaymentNotFound},
		{"code in error field", http.StatusUnauthorized, `{"error":"invalid_api_key"}`, application.ProcessorInvalidAPIKey},
		{"undocumented code", http.StatusTooManyRequests, `{"code":"slow_down"}`, application.ProcessorRateLimited},
		{"plain text", http.StatusBadGateway, `bad gateway`, application.ProcessorInternalError},
		{"bad request", http.StatusBadRequest, ``, application.ProcessorInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetPayment(context.Background(), "pay_x")
			procErr, ok := application.IsProcessorError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.want, procErr.Code)
			assert.Equal(t, tt.status, procErr.StatusCode)
		})
	}
}

type mockProcessorClient struct {
	mock.Mock
}

func (m *mockProcessorClient) GetPayment(ctx context.Context, paymentID string) (*application.ProcessorPayment, error) {
	args := m.Called(ctx, paymentID)
	if p := args.Get(0); p != nil {
		return p.(*application.ProcessorPayment), args.Error(1)
	}
	return nil, args.Error(1)
}

func retryConfig() config.ProcessorConfig {
	return config.ProcessorConfig{MaxRetries: 3, RetryBaseDelay: time.Millisecond}
}

func TestRetryClient_RetriesTransientErrors(t *testing.T) {
	inner := new(mockProcessorClient)
	inner.On("GetPayment", mock.Anything, "pay_1").
		Return(nil, &application.ProcessorError{Code: application.ProcessorInternalError, StatusCode: 500}).
		Twice()
	inner.On("GetPayment", mock.Anything, "pay_1").
		Return(&application.ProcessorPayment{ID: "pay_1", Status: "completed"}, nil).
		Once()

	payment, err := processor.NewRetryClient(inner, retryConfig()).GetPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "completed", payment.Status)
	inner.AssertNumberOfCalls(t, "GetPayment", 3)
}

func TestRetryClient_StopsOnPermanentError(t *testing.T) {
	inner := new(mockProcessorClient)
	inner.On("GetPayment", mock.Anything, "pay_1").
		Return(nil, &application.ProcessorError{Code: application.ProcessorPaymentNotFound, StatusCode: 404}).
		Once()

	_, err := processor.NewRetryClient(inner, retryConfig()).GetPayment(context.Background(), "pay_1")
	require.Error(t, err)
	inner.AssertNumberOfCalls(t, "GetPayment", 1)
}

func TestRetryClient_GivesUp(t *testing.T) {
	inner := new(mockProcessorClient)
	inner.On("GetPayment", mock.Anything, "pay_1").Return(nil, errors.New("connection reset"))

	_, err := processor.NewRetryClient(inner, retryConfig()).GetPayment(context.Background(), "pay_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	inner.AssertNumberOfCalls(t, "GetPayment", 3)
}

func TestRetryClient_HonoursCancellation(t *testing.T) {
	inner := new(mockProcessorClient)
	inner.On("GetPayment", mock.Anything, "pay_1").Return(nil, errors.New("connection reset"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := processor.NewRetryClient(inner, config.ProcessorConfig{MaxRetries: 5, RetryBaseDelay: time.Hour})
	_, err := client.GetPayment(ctx, "pay_1")
	assert.ErrorIs(t, err, context.Canceled)
	inner.AssertNumberOfCalls(t, "GetPayment", 1)
}
