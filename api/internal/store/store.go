// Package store хранит состояние чатов: временные данные (распознанное
// уравнение), выбранный предмет, текущую беседу, историю сообщений и отзывы.
package store

import (
	"context"
	"time"
)

// KeyEquation: ключ временных данных для распознанного уравнения.
const KeyEquation = "equation_text"

// Message: сообщение беседы в том виде, в каком его пишет и читает бот.
type Message struct {
	ConvID       string
	Role         string // "user" | "assistant"
	Content      string
	UserID       int64
	UserName     string
	MessageID    int
	SystemPrompt string
	ReplyUserID  int64
	CreatedAt    time.Time
}

// Feedback: message_id уникален только внутри чата, поэтому ключ включает ChatID.
type Feedback struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Value     string // "like" | "dislike"
}

// ChatState: всё, что роутеру нужно знать о чате между апдейтами.
// Отсутствующие значения возвращаются пустой строкой без ошибки.
type ChatState interface {
	GetStaged(ctx context.Context, chatID int64, key string) (string, error)
	SetStaged(ctx context.Context, chatID int64, key, value string) error
	// TakeStaged читает и удаляет значение одной операцией.
	TakeStaged(ctx context.Context, chatID int64, key string) (string, error)

	GetSubject(ctx context.Context, chatID int64) (string, error)
	// SetSubject с пустой строкой сбрасывает предмет.
	SetSubject(ctx context.Context, chatID int64, subject string) error

	// CurrentConversation создаёт беседу, если её ещё нет.
	CurrentConversation(ctx context.Context, chatID int64) (string, error)
	NewConversation(ctx context.Context, chatID int64) (string, error)

	SaveMessage(ctx context.Context, m Message) error
	FetchConversation(ctx context.Context, convID string) ([]Message, error)
	SaveFeedback(ctx context.Context, f Feedback) error
}
