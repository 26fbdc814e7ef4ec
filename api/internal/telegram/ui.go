package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbConfirmEquation = "confirm_equation"
	cbRejectEquation  = "reject_equation"
	cbSetSubject      = "set_subject:"
	cbFeedback        = "feedback:"
)

// Кнопки подтверждения распознанного уравнения
func makeConfirmKeyboard() *tgbotapi.InlineKeyboardMarkup {
	yes := tgbotapi.NewInlineKeyboardButtonData("Подтвердить", cbConfirmEquation)
	no := tgbotapi.NewInlineKeyboardButtonData("Отклонить", cbRejectEquation)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(yes, no))
	return &kb
}

// Оценка ответа в свободном чате
func makeLikesKeyboard() *tgbotapi.InlineKeyboardMarkup {
	like := tgbotapi.NewInlineKeyboardButtonData("👍", cbFeedback+"like")
	dislike := tgbotapi.NewInlineKeyboardButtonData("👎", cbFeedback+"dislike")
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(like, dislike))
	return &kb
}

// Предметы по два в ряд
func makeSubjectKeyboard(names []string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(names); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(names[i], cbSetSubject+names[i])}
		if i+1 < len(names) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(names[i+1], cbSetSubject+names[i+1]))
		}
		rows = append(rows, row)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
