package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/referral-service/internal/email"
)

// MockSender implements email.Sender and records sent messages.
// The first FailTimes calls return Err. Delay holds every call until it
// elapses or ctx is done.
type MockSender struct {
	mu        sync.Mutex
	sent      []email.Message
	calls     int
	FailTimes int
	Err       error
	Delay     time.Duration
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (s *MockSender) Send(ctx context.Context, msg email.Message) error {
	s.mu.Lock()
	s.calls++
	call, delay := s.calls, s.Delay
	s.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if call <= s.FailTimes {
		return s.Err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *MockSender) Sent() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.Message(nil), s.sent...)
}

func (s *MockSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
