package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openhours/doorkeeper/config"
	"github.com/openhours/doorkeeper/internal/bot"
	"github.com/openhours/doorkeeper/internal/executor"
	"github.com/openhours/doorkeeper/internal/health"
	ctxlog "github.com/openhours/doorkeeper/internal/log"
	"github.com/openhours/doorkeeper/internal/metrics"
	"github.com/openhours/doorkeeper/internal/notify"
	"github.com/openhours/doorkeeper/internal/schedule"
	"github.com/openhours/doorkeeper/internal/scheduler"
	httptransport "github.com/openhours/doorkeeper/internal/transport/http"
	"github.com/openhours/doorkeeper/internal/transport/http/handler"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := schedule.NewStore(cfg.SchedulePath, logger)

	client := ttlock.NewClient(ttlock.Credentials{
		ClientID:     cfg.TTLockClientID,
		ClientSecret: cfg.TTLockClientSecret,
		Username:     cfg.TTLockUsername,
		Password:     cfg.TTLockPassword,
	}, logger)

	token, err := client.Authenticate(ctx)
	if err != nil {
		log.Fatalf("ttlock auth: %v", err)
	}
	lockID, err := client.ResolveLockID(ctx, token, cfg.TTLockLockID)
	if err != nil {
		log.Fatalf("resolve lock: %v", err)
	}
	logger.Info("lock resolved", "lock_id", lockID)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	operatorBot := bot.New(api, store, client, lockID, cfg.TelegramChatID, cfg.TelegramCodeword, logger)

	chatSender := notify.NewTelegramSender(api, operatorBot.AuthorizedChat)
	emailSender := notify.NewEmailSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	notifier := notify.NewNotifier(chatSender, emailSender, cfg.AlertEmailTo, logger)

	exec := executor.New(notifier, logger)
	loop := scheduler.NewLoop(store, client, exec, notifier, logger, cfg.PollInterval(), lockID)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Check{Name: "schedule_store", Probe: func(context.Context) error {
			_, err := store.Load()
			return err
		}},
		health.Check{Name: "ttlock", Probe: func(ctx context.Context) error {
			_, err := client.Authenticate(ctx)
			return err
		}},
	)

	healthHandler := handler.NewHealthHandler(checker)
	statusHandler := handler.NewStatusHandler(store, logger)
	actionHandler := handler.NewActionHandler(client, lockID, logger)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, healthHandler, statusHandler, actionHandler),
	}
	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		loop.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		operatorBot.Run(ctx, api)
	}()

	go func() {
		logger.Info("admin server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("doorkeeper shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
