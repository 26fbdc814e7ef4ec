package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Sender: часть *tgbotapi.BotAPI, которой пользуется роутер.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// SendObserver получает результаты отправки (metrics.Recorder).
type SendObserver interface {
	ObserveSend(parseMode string, err error)
	ObserveSendWait(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveSend(string, error)     {}
func (nopObserver) ObserveSendWait(time.Duration) {}

// limitedBot держит исходящие запросы в пределах лимита Telegram.
type limitedBot struct {
	Sender
	ctx context.Context
	lim *rate.Limiter
	obs SendObserver
}

// NewLimited оборачивает s ограничителем rps запросов в секунду.
// rps <= 0 отключает ограничение. После отмены ctx запросы не уходят,
// а возвращают ошибку.
func NewLimited(ctx context.Context, s Sender, rps float64, obs SendObserver) Sender {
	if rps <= 0 {
		return s
	}
	if obs == nil {
		obs = nopObserver{}
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &limitedBot{Sender: s, ctx: ctx, lim: rate.NewLimiter(rate.Limit(rps), burst), obs: obs}
}

func (b *limitedBot) wait() error {
	start := time.Now()
	err := b.lim.Wait(b.ctx)
	b.obs.ObserveSendWait(time.Since(start))
	if err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}
	return nil
}

func (b *limitedBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.wait(); err != nil {
		return tgbotapi.Message{}, err
	}
	return b.Sender.Send(c)
}

func (b *limitedBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := b.wait(); err != nil {
		return nil, err
	}
	return b.Sender.Request(c)
}
