package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application/services"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/testhelpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func completedEvent() *domain.Event {
	return &domain.Event{
		Kind:      domain.KindPaymentCompleted,
		PaymentID: "pay_1",
		OrderID:   "ord_1",
		Amount:    &domain.Money{Amount: decimal.NewFromInt(100), Currency: "USDC"},
		Items:     []domain.LineItem{{ProductID: "steam-50", Quantity: 2}},
	}
}

func TestBuildDeliveryRequest_SynthesizesCustomerID(t *testing.T) {
	req := services.BuildDeliveryRequest(completedEvent())

	assert.Equal(t, "p100-pay_1", req.CustomerID)
	assert.Equal(t, "ord_1", req.OrderID)
	assert.Equal(t, "pay_1", req.PaymentID)
	assert.Equal(t, "USDC", req.Currency)
	assert.True(t, decimal.NewFromInt(100).Equal(req.Amount))
	assert.Len(t, req.Items, 1)

	event := completedEvent()
	event.CustomerID = "cust_9"
	assert.Equal(t, "cust_9", services.BuildDeliveryRequest(event).CustomerID)

	event.Items = nil
	assert.NotNil(t, services.BuildDeliveryRequest(event).Items)
}

func TestPaymentService_CompletedDeliversAndTransitions(t *testing.T) {
	dispatcher := new(MockDispatcher)
	states := memory.NewPaymentStateStore()
	svc := services.NewPaymentService(dispatcher, states, nil, testhelpers.Logger())

	dispatcher.On("Dispatch", mock.Anything, application.ActionDeliverGiftCards, mock.MatchedBy(func(req application.GiftCardDeliveryRequest) bool {
		return req.OrderID == "ord_1" && req.CustomerID == "p100-pay_1"
	})).Return(&application.DispatchResponse{StatusCode: 200}, nil).Once()

	outcome, err := svc.Handle(context.Background(), completedEvent())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDelivered, outcome.Status)

	status, err := states.Status(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
	dispatcher.AssertExpectations(t)
}

func TestPaymentService_CompletedDispatchFailurePropagates(t *testing.T) {
	dispatcher := new(MockDispatcher)
	states := memory.NewPaymentStateStore()
	svc := services.NewPaymentService(dispatcher, states, nil, testhelpers.Logger())

	dispatcher.On("Dispatch", mock.Anything, application.ActionDeliverGiftCards, mock.Anything).
		Return(nil, &application.DispatchError{Action: application.ActionDeliverGiftCards, StatusCode: 503}).Once()

	_, err := svc.Handle(context.Background(), completedEvent())
	require.Error(t, err)

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeDispatchFailed, svcErr.Code)
	assert.Equal(t, 500, application.ToHTTPStatus(err))

	status, _ := states.Status(context.Background(), "pay_1")
	assert.Equal(t, domain.StatusPending, status)
}

func TestPaymentService_FailedAndExpiredMapToFailedOrder(t *testing.T) {
	for _, kind := range []domain.EventKind{domain.KindPaymentFailed, domain.KindPaymentExpired} {
		t.Run(string(kind), func(t *testing.T) {
			dispatcher := new(MockDispatcher)
			svc := services.NewPaymentService(dispatcher, memory.NewPaymentStateStore(), nil, testhelpers.Logger())

			dispatcher.On("Dispatch", mock.Anything, application.ActionMarkOrderFailed, application.OrderStatusUpdate{
				OrderID:   "ord_2",
				Status:    "failed",
				PaymentID: "pay_2",
			}).Return(&application.DispatchResponse{StatusCode: 200}, nil).Once()

			outcome, err := svc.Handle(context.Background(), &domain.Event{Kind: kind, PaymentID: "pay_2", OrderID: "ord_2"})
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeOrderFailed, outcome.Status)
			dispatcher.AssertExpectations(t)
		})
	}
}

func TestPaymentService_TerminalPaymentIgnoresLateEvent(t *testing.T) {
	dispatcher := new(MockDispatcher)
	states := memory.NewPaymentStateStore()
	require.NoError(t, states.Transition(context.Background(), "pay_1", "ord_1", domain.StatusExpired))
	svc := services.NewPaymentService(dispatcher, states, nil, testhelpers.Logger())

	outcome, err := svc.Handle(context.Background(), completedEvent())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, outcome.Status)
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ProcessorConfirmation(t *testing.T) {
	t.Run("settled payment is delivered", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		proc := new(MockProcessorClient)
		svc := services.NewPaymentService(dispatcher, memory.NewPaymentStateStore(), proc, testhelpers.Logger())

		proc.On("GetPayment", mock.Anything, "pay_1").Return(&application.ProcessorPayment{ID: "pay_1", Status: "completed"}, nil).Once()
		dispatcher.On("Dispatch", mock.Anything, application.ActionDeliverGiftCards, mock.Anything).
			Return(&application.DispatchResponse{StatusCode: 200}, nil).Once()

		_, err := svc.Handle(context.Background(), completedEvent())
		require.NoError(t, err)
		proc.AssertExpectations(t)
		dispatcher.AssertExpectations(t)
	})

	t.Run("unsettled payment is not delivered", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		proc := new(MockProcessorClient)
		svc := services.NewPaymentService(dispatcher, memory.NewPaymentStateStore(), proc, testhelpers.Logger())

		proc.On("GetPayment", mock.Anything, "pay_1").Return(&application.ProcessorPayment{ID: "pay_1", Status: "pending"}, nil).Once()

		_, err := svc.Handle(context.Background(), completedEvent())
		assert.Equal(t, application.ErrCodePaymentNotSettled, application.ToErrorCode(err))
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("processor error propagates", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		proc := new(MockProcessorClient)
		svc := services.NewPaymentService(dispatcher, memory.NewPaymentStateStore(), proc, testhelpers.Logger())

		procErr := &application.ProcessorError{Code: application.ProcessorInternalError, StatusCode: 500}
		proc.On("GetPayment", mock.Anything, "pay_1").Return(nil, procErr).Once()

		_, err := svc.Handle(context.Background(), completedEvent())
		assert.True(t, errors.Is(err, procErr))
		assert.Equal(t, 500, application.ToHTTPStatus(err))
	})
}

func TestPaymentService_ConflictingEventDuringDeliveryIsIgnored(t *testing.T) {
	ctx := context.Background()
	dispatcher := new(MockDispatcher)
	states := memory.NewPaymentStateStore()
	svc := services.NewPaymentService(dispatcher, states, nil, testhelpers.Logger())

	failed := &domain.Event{Kind: domain.KindPaymentFailed, PaymentID: "pay_1", OrderID: "ord_1"}
	var conflicting domain.Outcome
	dispatcher.On("Dispatch", mock.Anything, application.ActionDeliverGiftCards, mock.Anything).
		Run(func(mock.Arguments) {
			var err error
			conflicting, err = svc.Handle(ctx, failed)
			require.NoError(t, err)
		}).
		Return(&application.DispatchResponse{StatusCode: 200}, nil).Once()

	outcome, err := svc.Handle(ctx, completedEvent())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDelivered, outcome.Status)
	assert.Equal(t, domain.OutcomeIgnored, conflicting.Status)

	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
	status, err := states.Status(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
}

func TestPaymentService_FailedPathDispatchFailureRevertsClaim(t *testing.T) {
	ctx := context.Background()
	dispatcher := new(MockDispatcher)
	states := memory.NewPaymentStateStore()
	svc := services.NewPaymentService(dispatcher, states, nil, testhelpers.Logger())

	dispatcher.On("Dispatch", mock.Anything, application.ActionMarkOrderFailed, mock.Anything).
		Return(nil, &application.DispatchError{Action: application.ActionMarkOrderFailed, StatusCode: 500}).Once()

	_, err := svc.Handle(ctx, &domain.Event{Kind: domain.KindPaymentExpired, PaymentID: "pay_4", OrderID: "ord_4"})
	require.Error(t, err)

	status, err := states.Status(ctx, "pay_4")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, status)
}
