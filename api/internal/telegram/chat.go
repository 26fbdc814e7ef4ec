package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"math-bot/api/internal/llm"
	"math-bot/api/internal/store"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	placeholderText = "⏳"
)

// generate отвечает на обычный текст в рамках текущей беседы чата.
func (r *Router) generate(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	group := isGroup(msg)

	mu := r.chatLock(cid)
	mu.Lock()
	defer mu.Unlock()

	conv, err := r.State.CurrentConversation(ctx, cid)
	if err != nil {
		r.sendError(cid, err)
		return
	}
	hist, err := r.State.FetchConversation(ctx, conv)
	if err != nil {
		r.sendError(cid, err)
		return
	}

	user := store.Message{
		ConvID:    conv,
		Role:      roleUser,
		Content:   msg.Text,
		UserName:  userName(msg.From),
		MessageID: msg.MessageID,
	}
	if msg.From != nil {
		user.UserID = msg.From.ID
	}
	msgs := historyMessages(append(hist, user), group)
	if err := r.State.SaveMessage(ctx, user); err != nil {
		slog.Error("save user message", "chat_id", cid, "error", err)
	}

	ph := tgbotapi.NewMessage(cid, placeholderText)
	ph.ReplyToMessageID = msg.MessageID
	placeholder, err := r.Bot.Send(ph)
	if err != nil {
		slog.Error("send placeholder", "chat_id", cid, "error", err)
		return
	}

	p := r.Providers.Get(cid)
	system := r.systemPrompt(ctx, cid, p)

	cctx, cancel := context.WithTimeout(ctx, r.pipelineTimeout())
	defer cancel()
	answer, err := p.Completer.Complete(cctx, msgs, system, p.MaxAttempts)
	if err != nil {
		slog.Error("chat completion", "chat_id", cid, "provider", p.Name, "kind", llm.KindOf(err).String(), "error", err)
		_ = r.editText(cid, placeholder.MessageID, fmt.Sprintf("Что-то пошло не так: %v", err), nil)
		return
	}

	lastID, err := r.replaceInto(cid, placeholder.MessageID, msg.MessageID, answer, makeLikesKeyboard())
	if err != nil {
		slog.Error("deliver answer", "chat_id", cid, "error", err)
	}
	err = r.State.SaveMessage(ctx, store.Message{
		ConvID:       conv,
		Role:         roleAssistant,
		Content:      answer,
		MessageID:    lastID,
		SystemPrompt: system,
		ReplyUserID:  user.UserID,
	})
	if err != nil {
		slog.Error("save assistant message", "chat_id", cid, "error", err)
	}
}

// historyMessages переводит историю беседы в сообщения модели. В группах
// к репликам пользователей добавляется имя автора.
func historyMessages(hist []store.Message, group bool) []llm.Message {
	out := make([]llm.Message, 0, len(hist))
	for _, m := range hist {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != roleUser {
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
			continue
		}
		content := m.Content
		if group && m.UserName != "" {
			content = fmt.Sprintf("Из чата пишет %s: %s", m.UserName, content)
		}
		out = append(out, llm.Message{Role: llm.RoleUser, Content: content})
	}
	return out
}

func (r *Router) systemPrompt(ctx context.Context, chatID int64, p *llm.Provider) string {
	subj, err := r.State.GetSubject(ctx, chatID)
	if err != nil {
		slog.Warn("get subject", "chat_id", chatID, "error", err)
	}
	if subj == "" {
		return p.SystemPrompt
	}
	id := r.Subjects[subj]
	if id == "" {
		id = subj
	}
	return strings.TrimSpace(p.SystemPrompt + "\n\nПредмет беседы: " + subj + " (" + id + ").")
}
