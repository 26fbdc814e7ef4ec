package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"math-bot/api/internal/store"
	"math-bot/api/internal/util"
)

const previewCaption = "Распознанное уравнение:"

// stageEquation кладёт уравнение в стейдж и показывает превью с кнопками.
// Последнее присланное уравнение перезаписывает предыдущее.
func (r *Router) stageEquation(ctx context.Context, chatID int64, replyTo int, eq string) {
	eq = util.StripDollars(eq)
	if eq == "" {
		r.send(chatID, "Не удалось распознать уравнение.")
		return
	}
	if err := r.State.SetStaged(ctx, chatID, store.KeyEquation, eq); err != nil {
		r.sendError(chatID, err)
		return
	}

	if r.Renderer != nil {
		png, err := r.Renderer.Render(eq)
		if err == nil {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "equation.png", Bytes: png})
			photo.Caption = previewCaption
			photo.ReplyToMessageID = replyTo
			photo.ReplyMarkup = *makeConfirmKeyboard()
			_, err = r.Bot.Send(photo)
			r.observer().ObserveSend("", err)
			if err == nil {
				return
			}
		}
		slog.Warn("equation preview failed, sending text", "chat_id", chatID, "error", err)
	}

	text := previewCaption + "\n`" + eq + "`"
	if _, err := r.sendText(chatID, replyTo, text, makeConfirmKeyboard()); err != nil {
		slog.Error("equation preview", "chat_id", chatID, "error", err)
	}
}
