package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, action application.DispatchAction, payload any) (*application.DispatchResponse, error) {
	args := m.Called(ctx, action, payload)
	if resp := args.Get(0); resp != nil {
		return resp.(*application.DispatchResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockProcessorClient struct {
	mock.Mock
}

func (m *MockProcessorClient) GetPayment(ctx context.Context, paymentID string) (*application.ProcessorPayment, error) {
	args := m.Called(ctx, paymentID)
	if p := args.Get(0); p != nil {
		return p.(*application.ProcessorPayment), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	return m.Called(ctx, routingKey, body).Error(0)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) ShouldProcess(ctx context.Context, eventKey string) (domain.Reservation, error) {
	args := m.Called(ctx, eventKey)
	return args.Get(0).(domain.Reservation), args.Error(1)
}

func (m *MockIdempotencyStore) RecordOutcome(ctx context.Context, eventKey string, outcome domain.Outcome) error {
	return m.Called(ctx, eventKey, outcome).Error(0)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventKey, token string) error {
	return m.Called(ctx, eventKey, token).Error(0)
}

// recordingDispatcher is a thread-safe fake that counts calls per action.
// delay holds every call open to widen race windows.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls map[application.DispatchAction][]any
	fail  map[application.DispatchAction]error
	delay time.Duration
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{
		calls: make(map[application.DispatchAction][]any),
		fail:  make(map[application.DispatchAction]error),
	}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, action application.DispatchAction, payload any) (*application.DispatchResponse, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[action] = append(d.calls[action], payload)
	if err := d.fail[action]; err != nil {
		return nil, err
	}
	return &application.DispatchResponse{StatusCode: 200}, nil
}

func (d *recordingDispatcher) count(action application.DispatchAction) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls[action])
}

func (d *recordingDispatcher) last(action application.DispatchAction) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := d.calls[action]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}
