// Package telegram реализует транспорт бота: команды, кнопки, приём
// уравнений текстом и фото, запуск решателя, доставку длинных ответов.
package telegram

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"math-bot/api/internal/llm"
	"math-bot/api/internal/ocr"
	"math-bot/api/internal/render"
	"math-bot/api/internal/solver"
	"math-bot/api/internal/store"
)

// Metrics: всё, что роутер сообщает наружу. Реализует metrics.Recorder.
type Metrics interface {
	solver.Recorder
	SendObserver
}

type Router struct {
	Bot        Sender
	State      store.ChatState
	Providers  *llm.Manager
	Recognizer ocr.Recognizer
	Renderer   render.Renderer
	// Subjects: название -> идентификатор (из providers.yaml)
	Subjects     map[string]string
	SubjectNames []string

	ChunkSize       int
	PipelineTimeout time.Duration
	AlbumDebounce   time.Duration
	Metrics         Metrics

	// Download скачивает файл Telegram по прямой ссылке.
	Download func(ctx context.Context, url string) ([]byte, error)

	inflight sync.Map // chatID -> struct{}
	batches  sync.Map // mediaGroupID -> *photoBatch
	chats    sync.Map // chatID -> *sync.Mutex
}

type nopMetrics struct{ nopObserver }

func (nopMetrics) ObservePipeline(string, string) {}
func (nopMetrics) ObserveStep(bool)               {}

func (r *Router) metrics() Metrics {
	if r.Metrics == nil {
		return nopMetrics{}
	}
	return r.Metrics
}

func (r *Router) observer() SendObserver { return r.metrics() }

func (r *Router) pipelineTimeout() time.Duration {
	if r.PipelineTimeout > 0 {
		return r.PipelineTimeout
	}
	return 3 * time.Minute
}

// HandleUpdate обрабатывает один апдейт. Безопасно вызывать из нескольких
// горутин: решения одного чата не пересекаются (см. acquire).
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("update handler panic", "update_id", upd.UpdateID, "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	// callback-кнопки
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	switch {
	case msg.IsCommand():
		r.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		r.generate(ctx, msg)
	}
}

// Commands: меню команд для setMyCommands.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Начать новую беседу"},
		{Command: "help", Description: "Список команд"},
		{Command: "solve", Description: "Решить уравнение: /solve x^2-4=0"},
		{Command: "set_subject", Description: "Выбрать предмет"},
		{Command: "get_subject", Description: "Текущий предмет"},
		{Command: "reset_subject", Description: "Сбросить предмет"},
		{Command: "history", Description: "История беседы"},
		{Command: "reset_history", Description: "Сбросить историю"},
		{Command: "engine", Description: "Выбрать модель: /engine <имя>"},
	}
}

// isGroup сообщает, что сообщение пришло не из личного чата с ботом.
func isGroup(msg *tgbotapi.Message) bool {
	return msg.From == nil || msg.Chat.ID != msg.From.ID
}

func userName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.UserName
}
