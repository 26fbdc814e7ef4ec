package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimited_PassesThrough(t *testing.T) {
	bot := newFakeBot()
	s := NewLimited(context.Background(), bot, 50, nil)

	_, err := s.Send(tgbotapi.NewMessage(chatID, "привет"))
	require.NoError(t, err)
	_, err = s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	require.NoError(t, err)
	assert.Equal(t, []string{"привет"}, bot.texts())
	assert.Len(t, bot.requests, 1)
}

func TestNewLimited_CancelledContextStopsSending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bot := newFakeBot()
	s := NewLimited(ctx, bot, 50, nil)

	_, err := s.Send(tgbotapi.NewMessage(chatID, "привет"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, bot.texts())
	assert.Empty(t, bot.requests)
}

func TestNewLimited_ZeroRateIsUnwrapped(t *testing.T) {
	bot := newFakeBot()
	assert.Same(t, bot, NewLimited(context.Background(), bot, 0, nil))
}
