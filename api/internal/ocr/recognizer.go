// Package ocr распознаёт уравнение на фотографии через vision-модель.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"math-bot/api/internal/util"
)

// Recognizer возвращает текст уравнения. Пустая строка без ошибки означает,
// что уравнение не найдено.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// VisionModel: модель, принимающая картинку вместе с текстом.
// Реализуют llm/gemini.Engine и llm/openai.Engine.
type VisionModel interface {
	GetModel() string
	Describe(ctx context.Context, prompt, mime string, img []byte) (string, error)
}

const noEquation = "NONE"

const recognizePrompt = `Перепиши математическое уравнение с изображения в формате LaTeX.
Ответь только формулой, без пояснений и без обрамления $.
Если на изображении нет уравнения, ответь словом ` + noEquation + `.`

// DefaultMaxSide: длинная сторона картинки после уменьшения.
const DefaultMaxSide = 1600

type Vision struct {
	Model   VisionModel
	MaxSide int
}

func NewVision(m VisionModel) *Vision { return &Vision{Model: m, MaxSide: DefaultMaxSide} }

func (v *Vision) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("ocr: empty image")
	}
	img, mime, err := PrepareImage(image, v.MaxSide)
	if err != nil {
		return "", fmt.Errorf("ocr: prepare: %w", err)
	}
	raw, err := v.Model.Describe(ctx, recognizePrompt, mime, img)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	text := util.StripDollars(util.StripCodeFences(raw))
	if strings.EqualFold(text, noEquation) {
		return "", nil
	}
	return text, nil
}

// Cache: хранилище уже распознанных картинок (store.RecognitionRepo).
type Cache interface {
	Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (string, error)
	Upsert(ctx context.Context, imageHash, engine, model, text string) error
}

// Cached сначала ищет картинку в кэше по sha256, потом идёт в модель.
type Cached struct {
	Next   Recognizer
	Cache  Cache
	Engine string
	Model  string
	MaxAge time.Duration
}

func (c *Cached) Recognize(ctx context.Context, image []byte) (string, error) {
	hash := util.SHA256Hex(image)
	if text, err := c.Cache.Find(ctx, hash, c.Engine, c.Model, c.MaxAge); err == nil && text != "" {
		slog.Debug("recognition cache hit", "hash", hash[:12])
		return text, nil
	}
	text, err := c.Next.Recognize(ctx, image)
	if err != nil || text == "" {
		return text, err
	}
	if err := c.Cache.Upsert(ctx, hash, c.Engine, c.Model, text); err != nil {
		slog.Warn("recognition cache upsert failed", "error", err)
	}
	return text, nil
}
