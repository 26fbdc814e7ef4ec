package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"math-bot/api/internal/config"
	"math-bot/api/internal/llm"
	"math-bot/api/internal/llm/gemini"
	"math-bot/api/internal/llm/openai"
	"math-bot/api/internal/ocr"
	"math-bot/api/internal/ocr/yandex"
)

// visionBackend умеет и текст, и картинки (оба движка).
type visionBackend interface {
	llm.Backend
	ocr.VisionModel
}

func newBackend(ctx context.Context, p config.Provider, model string) (visionBackend, io.Closer, error) {
	switch p.Kind {
	case "gemini":
		e, err := gemini.New(ctx, p.APIKey, model)
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	case "openai":
		return openai.New(p.APIKey, model, p.BaseURL), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}

// buildProviders поднимает клиентов для всех провайдеров каталога.
// Провайдер, который не удалось создать, пропускается; без провайдера
// по умолчанию запускаться нельзя.
func buildProviders(ctx context.Context, cfg *config.Config, rec llm.Recorder) (*llm.Manager, []io.Closer, error) {
	var (
		providers []*llm.Provider
		closers   []io.Closer
	)
	for _, name := range cfg.Catalog.Names() {
		pc := cfg.Catalog.Providers[name]
		backend, closer, err := newBackend(ctx, pc, pc.Model)
		if err != nil {
			slog.Warn("provider skipped", "provider", name, "error", err)
			continue
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		attempts := pc.MaxAttempts
		if attempts <= 0 {
			attempts = cfg.LLMMaxAttempts
		}
		client := llm.NewClient(name, backend, llm.Options{
			MaxAttempts: attempts,
			CallTimeout: cfg.LLMCallTimeout,
			Backoff:     cfg.LLMRetryBackoff,
		}, rec)
		providers = append(providers, &llm.Provider{
			Name:         name,
			Model:        pc.Model,
			Mode:         pc.Mode,
			SystemPrompt: pc.SystemPrompt,
			MaxAttempts:  attempts,
			Completer:    client,
		})
	}
	mgr, err := llm.NewManager(cfg.Catalog.Default, providers...)
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}
	return mgr, closers, nil
}

// buildRecognizer берёт ключ у первого провайдера нужного вида (OCR_ENGINE)
// и модель из OCR_MODEL, а без неё модель самого провайдера. cache может быть nil.
func buildRecognizer(ctx context.Context, cfg *config.Config, cache ocr.Cache) (ocr.Recognizer, io.Closer, error) {
	switch cfg.OCREngine {
	case "", "none":
		return nil, nil, fmt.Errorf("OCR_ENGINE=%q", cfg.OCREngine)
	case "yandex":
		e, err := yandex.New(cfg.YCOAuthToken, cfg.YCFolderID)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("photo recognition enabled", "engine", e.Name(), "model", e.GetModel())
		return withCache(e, cache, e.Name(), e.GetModel()), nil, nil
	}
	names := append([]string{cfg.Catalog.Default}, cfg.Catalog.Names()...)
	for _, name := range names {
		pc, ok := cfg.Catalog.Providers[name]
		if !ok || pc.Kind != cfg.OCREngine {
			continue
		}
		model := cfg.OCRModel
		if model == "" {
			model = pc.Model
		}
		vm, closer, err := newBackend(ctx, pc, model)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("photo recognition enabled", "engine", cfg.OCREngine, "model", model, "provider", name)
		return withCache(ocr.NewVision(vm), cache, cfg.OCREngine, model), closer, nil
	}
	return nil, nil, fmt.Errorf("no %s provider configured for OCR", cfg.OCREngine)
}

func withCache(r ocr.Recognizer, cache ocr.Cache, engine, model string) ocr.Recognizer {
	if cache == nil {
		return r
	}
	return &ocr.Cached{Next: r, Cache: cache, Engine: engine, Model: model, MaxAge: recognitionTTL}
}

func closeAll(cs []io.Closer) {
	for _, c := range cs {
		if err := c.Close(); err != nil {
			slog.Warn("close", "error", err)
		}
	}
}
