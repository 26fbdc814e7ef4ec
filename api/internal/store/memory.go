package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory: ChatState в памяти процесса. Используется в тестах и в CLI,
// когда база не настроена.
type Memory struct {
	mu       sync.Mutex
	staged   map[int64]map[string]string
	subjects map[int64]string
	convs    map[int64]string
	messages map[string][]Message
	feedback map[[3]int64]string
}

func NewMemory() *Memory {
	return &Memory{
		staged:   map[int64]map[string]string{},
		subjects: map[int64]string{},
		convs:    map[int64]string{},
		messages: map[string][]Message{},
		feedback: map[[3]int64]string{},
	}
}

var _ ChatState = (*Memory)(nil)

func (m *Memory) GetStaged(_ context.Context, chatID int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staged[chatID][key], nil
}

func (m *Memory) SetStaged(_ context.Context, chatID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staged[chatID] == nil {
		m.staged[chatID] = map[string]string{}
	}
	m.staged[chatID][key] = value
	return nil
}

func (m *Memory) TakeStaged(_ context.Context, chatID int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.staged[chatID][key]
	delete(m.staged[chatID], key)
	return v, nil
}

func (m *Memory) GetSubject(_ context.Context, chatID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subjects[chatID], nil
}

func (m *Memory) SetSubject(_ context.Context, chatID int64, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subject == "" {
		delete(m.subjects, chatID)
		return nil
	}
	m.subjects[chatID] = subject
	return nil
}

func (m *Memory) CurrentConversation(ctx context.Context, chatID int64) (string, error) {
	m.mu.Lock()
	id, ok := m.convs[chatID]
	m.mu.Unlock()
	if ok {
		return id, nil
	}
	return m.NewConversation(ctx, chatID)
}

func (m *Memory) NewConversation(_ context.Context, chatID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.convs[chatID] = id
	return id, nil
}

func (m *Memory) SaveMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.messages[msg.ConvID] = append(m.messages[msg.ConvID], msg)
	return nil
}

func (m *Memory) FetchConversation(_ context.Context, convID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.messages[convID]
	if len(src) == 0 {
		return nil, nil
	}
	out := make([]Message, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) SaveFeedback(_ context.Context, f Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback[[3]int64{f.ChatID, f.UserID, int64(f.MessageID)}] = f.Value
	return nil
}

// FeedbackFor возвращает сохранённый отзыв (для тестов и отладки).
func (m *Memory) FeedbackFor(chatID, userID int64, messageID int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feedback[[3]int64{chatID, userID, int64(messageID)}]
}
