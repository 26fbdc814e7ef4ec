package llm

import (
	"context"
	"errors"
	"sync"
)

// MockReply is a canned backend answer.
type MockReply struct {
	Text string
	Err  error
}

// MockBackend is a deterministic Backend for tests. It returns canned
// replies in FIFO order and records every call.
type MockBackend struct {
	mu      sync.Mutex
	replies []MockReply
	Calls   [][]Message
}

func NewMockBackend(replies ...MockReply) *MockBackend {
	return &MockBackend{replies: replies}
}

// Texts is a shorthand for NewMockBackend with successful replies only.
func Texts(texts ...string) *MockBackend {
	replies := make([]MockReply, len(texts))
	for i, t := range texts {
		replies[i] = MockReply{Text: t}
	}
	return NewMockBackend(replies...)
}

func (m *MockBackend) GetModel() string { return "mock" }

func (m *MockBackend) Complete(_ context.Context, msgs []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, msgs)
	if len(m.replies) == 0 {
		return "", errors.New("mock: no replies left")
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.Text, r.Err
}

func (m *MockBackend) Add(r MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, r)
}

func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
