package telegram

import (
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeBot записывает всё, что роутер отправил, и умеет ронять отправку
// для выбранных режимов разметки.
type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	attempts []string // режимы разметки текстовых отправок, включая неудачные
	failMode map[string]bool
	nextID   int
}

func newFakeBot() *fakeBot { return &fakeBot{nextID: 100, failMode: map[string]bool{}} }

func parseModeOf(c tgbotapi.Chattable) (string, bool) {
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		return v.ParseMode, true
	case tgbotapi.EditMessageTextConfig:
		return v.ParseMode, true
	}
	return "", false
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mode, ok := parseModeOf(c); ok {
		b.attempts = append(b.attempts, mode)
		if b.failMode[mode] {
			return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
		}
	}
	b.sent = append(b.sent, c)
	b.nextID++
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

// texts: тексты всех отправленных и отредактированных сообщений по порядку.
func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, v.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, v.Text)
		}
	}
	return out
}

func (b *fakeBot) photos() []tgbotapi.PhotoConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range b.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

func (b *fakeBot) count(pred func(tgbotapi.Chattable) bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.sent {
		if pred(c) {
			n++
		}
	}
	return n
}

func isKeyboardRemoval(c tgbotapi.Chattable) bool {
	_, ok := c.(tgbotapi.EditMessageReplyMarkupConfig)
	return ok
}
