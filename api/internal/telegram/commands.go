package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	greetingText   = "Привет, я помогу ответить на твои вопросы, связанные с математикой"
	unknownCmdText = "Такой команды у бота нет. Если вы не пытались ввести команду, уберите '/' из начала сообщения."
)

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		if _, err := r.State.NewConversation(ctx, cid); err != nil {
			r.sendError(cid, err)
			return
		}
		r.send(cid, greetingText+"\n\n"+helpText())
	case "set_subject":
		if len(r.SubjectNames) == 0 {
			r.send(cid, "Предметы не настроены.")
			return
		}
		m := tgbotapi.NewMessage(cid, "Выберите предмет:")
		m.ReplyToMessageID = msg.MessageID
		m.ReplyMarkup = *makeSubjectKeyboard(r.SubjectNames)
		if _, err := r.Bot.Send(m); err != nil {
			slog.Error("set_subject: send keyboard", "chat_id", cid, "error", err)
		}
	case "get_subject":
		subj, err := r.State.GetSubject(ctx, cid)
		if err != nil {
			r.sendError(cid, err)
			return
		}
		if subj == "" {
			r.send(cid, "Предмет не выбран.")
			return
		}
		r.send(cid, subj)
	case "reset_subject":
		if err := r.State.SetSubject(ctx, cid, ""); err != nil {
			r.sendError(cid, err)
			return
		}
		r.send(cid, "Выбор предмета сброшен.")
	case "history":
		r.showHistory(ctx, msg)
	case "reset_history":
		if _, err := r.State.NewConversation(ctx, cid); err != nil {
			r.sendError(cid, err)
			return
		}
		r.send(cid, "История сброшена")
	case "solve":
		eq := strings.TrimSpace(msg.CommandArguments())
		if eq == "" {
			r.send(cid, "Отправьте уравнение после команды, например: /solve x^2 - 4 = 0. Или пришлите фото.")
			return
		}
		r.stageEquation(ctx, cid, msg.MessageID, eq)
	case "engine":
		r.handleEngine(msg)
	default:
		// в группах чужие команды не комментируем
		if !isGroup(msg) {
			r.send(cid, unknownCmdText)
		}
	}
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Команды:\n")
	for _, c := range Commands() {
		fmt.Fprintf(&b, "/%s - %s\n", c.Command, c.Description)
	}
	b.WriteString("\nМожно просто прислать фото уравнения или написать вопрос.")
	return b.String()
}

func (r *Router) showHistory(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
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
	if len(hist) == 0 {
		r.send(cid, "Истории не найдено")
		return
	}
	var b strings.Builder
	b.WriteString("История:\n")
	for _, m := range hist {
		who := "бот"
		if m.Role == roleUser {
			who = m.UserName
			if who == "" {
				who = "пользователь"
			}
		}
		fmt.Fprintf(&b, "\n%s: %s\n", who, m.Content)
	}
	// история может содержать что угодно, разметку не включаем
	for _, part := range SplitMessage(b.String(), r.chunkSize()) {
		r.send(cid, part)
	}
}

// /engine без аргумента показывает модели, с аргументом переключает.
func (r *Router) handleEngine(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		cur := r.Providers.Get(cid)
		r.send(cid, fmt.Sprintf("Текущая модель: %s (%s)\nДоступные: %s\nПереключить: /engine <имя>",
			cur.Name, cur.Model, strings.Join(r.Providers.Names(), ", ")))
		return
	}
	if err := r.Providers.Set(cid, name); err != nil {
		r.send(cid, fmt.Sprintf("Неизвестная модель %q. Доступные: %s", name, strings.Join(r.Providers.Names(), ", ")))
		return
	}
	r.send(cid, "Модель переключена на "+name)
}

func (r *Router) sendError(chatID int64, err error) {
	slog.Error("handler error", "chat_id", chatID, "error", err)
	r.send(chatID, fmt.Sprintf("Произошла ошибка: %v", err))
}
