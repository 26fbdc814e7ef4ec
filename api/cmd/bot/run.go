package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"math-bot/api/internal/config"
	"math-bot/api/internal/handle"
	"math-bot/api/internal/httpserver"
	"math-bot/api/internal/metrics"
	"math-bot/api/internal/render"
	"math-bot/api/internal/store"
	"math-bot/api/internal/telegram"
)

const recognitionTTL = 90 * 24 * time.Hour

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot (webhook when WEBHOOK_URL is set, long polling otherwise)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func runBot(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is empty")
	}

	// --- Postgres ---
	db, err := openDB(ctx, resolveDSN(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	recognitions := store.NewRecognitionRepo(db)
	if n, err := recognitions.PurgeOlderThan(ctx, recognitionTTL); err != nil {
		slog.Warn("purge recognitions", "error", err)
	} else if n > 0 {
		slog.Info("purged stale recognitions", "rows", n)
	}

	// --- LLM ---
	rec := metrics.New(prometheus.DefaultRegisterer)
	providers, closers, err := buildProviders(ctx, cfg, rec)
	if err != nil {
		return err
	}
	defer closeAll(closers)
	recognizer, closer, err := buildRecognizer(ctx, cfg, recognitions)
	if err != nil {
		slog.Warn("photo recognition disabled", "error", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(telegram.Commands()...)); err != nil {
		slog.Warn("setMyCommands failed", "error", err)
	}

	r := &telegram.Router{
		Bot:             telegram.NewLimited(ctx, bot, cfg.TGSendRPS, rec),
		State:           store.NewPG(db),
		Providers:       providers,
		Recognizer:      recognizer,
		Renderer:        render.NewTextRenderer(),
		Subjects:        cfg.Catalog.Subjects,
		SubjectNames:    cfg.Catalog.SubjectNames(),
		ChunkSize:       cfg.OutputChunkSize,
		PipelineTimeout: cfg.PipelineTimeout,
		Metrics:         rec,
	}
	// апдейты разных чатов обрабатываются параллельно
	dispatch := func(upd tgbotapi.Update) { go r.HandleUpdate(ctx, upd) }

	opts := []handle.Option{handle.WithRecorder(rec), handle.WithDB(db), handle.WithTimeout(cfg.PipelineTimeout)}
	if recognizer != nil {
		opts = append(opts, handle.WithRecognizer(recognizer))
	}
	mux := httpserver.NewMux(handle.New(providers, opts...), prometheus.DefaultGatherer)
	addr := "0.0.0.0:" + cfg.Port

	slog.Info("bot started",
		"user", bot.Self.UserName, "providers", providers.Names(), "default", providers.Default().Name,
		"webhook", cfg.WebhookURL != "", "db", safeDSNSummary(resolveDSN(cfg.DatabaseURL)))

	if cfg.WebhookURL != "" {
		return startWebhookMode(ctx, addr, mux, bot, cfg.WebhookURL, dispatch)
	}
	return startPollingMode(ctx, addr, mux, bot, dispatch)
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, baseURL string, dispatch func(tgbotapi.Update)) error {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			slog.Warn("bad webhook update", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		dispatch(*upd)
	})

	slog.Info("webhook listening", "addr", addr, "path", path)
	return httpserver.Run(ctx, addr, mux)
}

func startPollingMode(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, dispatch func(tgbotapi.Update)) error {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		slog.Warn("delete webhook", "error", err)
	}
	// HTTP нужен для /healthz, /metrics и /v1/*
	go func() {
		if err := httpserver.Run(ctx, addr, mux); err != nil {
			slog.Error("http server stopped", "error", err)
		}
	}()

	runPolling(ctx, bot, dispatch)
	return nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// connection pool tune (нагрузка до ~20 rps)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	slog.Info("db connected", "dsn", safeDSNSummary(dsn))
	return db, nil
}
