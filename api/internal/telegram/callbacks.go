package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"math-bot/api/internal/llm"
	"math-bot/api/internal/solver"
	"math-bot/api/internal/store"
)

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID
	data := cb.Data
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch {
	case data == cbConfirmEquation:
		r.onConfirmEquation(ctx, cid, cb.Message.MessageID)
	case data == cbRejectEquation:
		r.onRejectEquation(ctx, cid, cb.Message.MessageID)
	case strings.HasPrefix(data, cbSetSubject):
		r.onSetSubject(ctx, cid, cb.Message.MessageID, strings.TrimPrefix(data, cbSetSubject))
	case strings.HasPrefix(data, cbFeedback):
		r.onFeedback(ctx, cb, strings.TrimPrefix(data, cbFeedback))
	default:
		slog.Warn("unknown callback", "chat_id", cid, "data", data)
	}
}

func (r *Router) onConfirmEquation(ctx context.Context, chatID int64, msgID int) {
	if !r.acquire(chatID) {
		r.send(chatID, "Уже решаю предыдущее уравнение, подождите.")
		return
	}
	defer r.release(chatID)

	r.removeKeyboard(chatID, msgID)

	// уравнение снимается со стейджа до решения: повторное нажатие его не найдёт
	eq, err := r.State.TakeStaged(ctx, chatID, store.KeyEquation)
	if err != nil {
		r.sendError(chatID, err)
		return
	}
	if eq == "" {
		r.send(chatID, "Ошибка: Уравнение не найдено.")
		return
	}

	p := r.Providers.Get(chatID)
	strategy, err := solver.ForProvider(p, r.metrics())
	if err != nil {
		r.sendError(chatID, err)
		return
	}

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	sctx, cancel := context.WithTimeout(ctx, r.pipelineTimeout())
	defer cancel()

	slog.Info("solving", "chat_id", chatID, "provider", p.Name, "strategy", strategy.Name())
	res, err := strategy.Solve(sctx, eq)
	if err != nil {
		if llm.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			r.send(chatID, "Не успел решить уравнение за отведённое время. Попробуйте ещё раз.")
			return
		}
		r.send(chatID, fmt.Sprintf("Ошибка при решении уравнения: %v", err))
		return
	}

	if _, err := r.reply(chatID, msgID, solutionText(eq, res), nil); err != nil {
		slog.Error("deliver solution", "chat_id", chatID, "error", err)
	}
}

func solutionText(eq string, res *solver.Result) string {
	head := "Уравнение: `" + eq + "`\n\n"
	if res.Strategy == solver.ModeDirect {
		return head + "Решение: " + res.Text()
	}
	return head + res.Text()
}

func (r *Router) onRejectEquation(ctx context.Context, chatID int64, msgID int) {
	r.removeKeyboard(chatID, msgID)
	if _, err := r.State.TakeStaged(ctx, chatID, store.KeyEquation); err != nil {
		slog.Warn("reject: clear staged", "chat_id", chatID, "error", err)
	}
	r.send(chatID, "Уравнение отклонено. Пожалуйста, отправьте новое уравнение.")
}

func (r *Router) onSetSubject(ctx context.Context, chatID int64, msgID int, name string) {
	if _, ok := r.Subjects[name]; !ok {
		r.send(chatID, "Такого предмета нет.")
		return
	}
	if err := r.State.SetSubject(ctx, chatID, name); err != nil {
		r.sendError(chatID, err)
		return
	}
	// новый предмет начинает новую беседу
	if _, err := r.State.NewConversation(ctx, chatID); err != nil {
		r.sendError(chatID, err)
		return
	}
	if err := r.editText(chatID, msgID, "Выбранный предмет: "+name, nil); err != nil {
		r.send(chatID, "Выбранный предмет: "+name)
	}
}

func (r *Router) onFeedback(ctx context.Context, cb *tgbotapi.CallbackQuery, value string) {
	if value != "like" && value != "dislike" {
		return
	}
	var uid int64
	if cb.From != nil {
		uid = cb.From.ID
	}
	f := store.Feedback{ChatID: cb.Message.Chat.ID, UserID: uid, MessageID: cb.Message.MessageID, Value: value}
	if err := r.State.SaveFeedback(ctx, f); err != nil {
		slog.Error("save feedback", "chat_id", cb.Message.Chat.ID, "error", err)
	}
	r.removeKeyboard(cb.Message.Chat.ID, cb.Message.MessageID)
}
