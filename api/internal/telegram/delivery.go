package telegram

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Порядок попыток: Markdown, затем HTML, затем без разметки.
var parseModes = []string{tgbotapi.ModeMarkdown, tgbotapi.ModeHTML, ""}

const defaultChunkSize = 3500

// SplitMessage режет текст на куски не длиннее max символов. Абзацы
// (разделитель "\n\n") склеиваются жадно; слишком длинный абзац режется
// по символам.
func SplitMessage(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	for _, p := range strings.Split(text, "\n\n") {
		if n := len(chunks); n > 0 && utf8.RuneCountInString(chunks[n-1])+utf8.RuneCountInString(p)+2 <= max {
			chunks[n-1] += "\n\n" + p
			continue
		}
		chunks = append(chunks, p)
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		rs := []rune(c)
		if len(rs) <= max {
			out = append(out, c)
			continue
		}
		for i := 0; i < len(rs); i += max {
			out = append(out, string(rs[i:min(i+max, len(rs))]))
		}
	}
	return out
}

func (r *Router) chunkSize() int {
	if r.ChunkSize > 0 {
		return r.ChunkSize
	}
	return defaultChunkSize
}

// sendText отправляет одно сообщение, понижая разметку при ошибке.
func (r *Router) sendText(chatID int64, replyTo int, text string, markup *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	var lastErr error
	for _, mode := range parseModes {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = mode
		msg.ReplyToMessageID = replyTo
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		sent, err := r.Bot.Send(msg)
		r.observer().ObserveSend(mode, err)
		if err == nil {
			return sent, nil
		}
		lastErr = err
		slog.Debug("send failed, downgrading markup", "chat_id", chatID, "parse_mode", mode, "error", err)
	}
	slog.Error("send failed", "chat_id", chatID, "error", lastErr)
	return tgbotapi.Message{}, lastErr
}

// editText делает то же для уже отправленного сообщения.
func (r *Router) editText(chatID int64, msgID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	var lastErr error
	for _, mode := range parseModes {
		edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
		edit.ParseMode = mode
		edit.ReplyMarkup = markup
		_, err := r.Bot.Send(edit)
		r.observer().ObserveSend(mode, err)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Debug("edit failed, downgrading markup", "chat_id", chatID, "parse_mode", mode, "error", err)
	}
	slog.Error("edit failed", "chat_id", chatID, "message_id", msgID, "error", lastErr)
	return lastErr
}

// reply отправляет длинный текст кусками; клавиатура вешается на последний.
func (r *Router) reply(chatID int64, replyTo int, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	return r.replyParts(chatID, replyTo, SplitMessage(text, r.chunkSize()), markup)
}

func (r *Router) replyParts(chatID int64, replyTo int, parts []string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	lastID := 0
	for i, p := range parts {
		var mk *tgbotapi.InlineKeyboardMarkup
		if i == len(parts)-1 {
			mk = markup
		}
		sent, err := r.sendText(chatID, replyTo, p, mk)
		if err != nil {
			return lastID, err
		}
		lastID = sent.MessageID
	}
	return lastID, nil
}

// replaceInto пишет первый кусок в сообщение-заглушку, остальные уходят ответами.
// Возвращает id сообщения с последним куском.
func (r *Router) replaceInto(chatID int64, placeholderID, replyTo int, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	parts := SplitMessage(text, r.chunkSize())
	first := markup
	if len(parts) > 1 {
		first = nil
	}
	if err := r.editText(chatID, placeholderID, parts[0], first); err != nil {
		return placeholderID, err
	}
	if len(parts) == 1 {
		return placeholderID, nil
	}
	return r.replyParts(chatID, replyTo, parts[1:], markup)
}

// send отправляет короткое служебное сообщение без разметки.
func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("send failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) removeKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := r.Bot.Send(edit); err != nil {
		slog.Debug("remove keyboard failed", "chat_id", chatID, "message_id", msgID, "error", err)
	}
}
