package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

type PaymentStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.PaymentState
}

func NewPaymentStateStore() *PaymentStateStore {
	return &PaymentStateStore{states: make(map[string]*domain.PaymentState)}
}

func (s *PaymentStateStore) Status(_ context.Context, paymentID string) (domain.PaymentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[paymentID]; ok {
		return state.Status, nil
	}
	return domain.StatusPending, nil
}

func (s *PaymentStateStore) Transition(_ context.Context, paymentID, orderID string, target domain.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[paymentID]
	if !ok {
		fresh, err := domain.NewPaymentState(paymentID, orderID)
		if err != nil {
			return err
		}
		state = fresh
	}

	next := *state
	if err := next.TransitionTo(target); err != nil {
		return err
	}
	s.states[paymentID] = &next
	return nil
}

func (s *PaymentStateStore) Revert(_ context.Context, paymentID string, claimed domain.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[paymentID]
	if !ok || state.Status != claimed {
		return nil
	}
	next := *state
	next.Status = domain.StatusPending
	next.UpdatedAt = time.Now()
	s.states[paymentID] = &next
	return nil
}
