package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assistance_alerts/internal/app"
	"assistance_alerts/internal/domain/clock"
	"assistance_alerts/internal/domain/notification"
	"assistance_alerts/internal/infra/config"
	idb "assistance_alerts/internal/infra/database"
	"assistance_alerts/internal/infra/httpapi"
	"assistance_alerts/internal/infra/logger"
	"assistance_alerts/internal/infra/memstore"
	"assistance_alerts/internal/infra/metrics"
	"assistance_alerts/internal/infra/redisstore"
	"assistance_alerts/internal/infra/scheduler"
	"assistance_alerts/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	if err := run(cfg, mainLogger); err != nil {
		mainLogger.WithError(err).Fatal("Application stopped with error")
	}
	mainLogger.Info("Application shut down gracefully")
}

func run(cfg *config.AppConfig, mainLogger *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"ack_store":   cfg.AckStore,
		"bot_enabled": cfg.BotEnabled(),
	}).Info("Configuration loaded")

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer db.Close()
	mainLogger.Info("Database connection established")

	checks := map[string]httpapi.HealthCheck{"database": db.PingContext}

	var ackRepo notification.AcknowledgementRepository
	switch cfg.AckStore {
	case config.AckStoreRedis:
		rdb, err := redisstore.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("could not connect to redis: %w", err)
		}
		defer rdb.Close()
		checks["redis"] = rdb.Health
		ackRepo = redisstore.NewAcknowledgementRepository(rdb.Client, cfg.AckStorageKey)
	case config.AckStoreMemory:
		mainLogger.Warn("Acknowledgements are kept in memory only and will be lost on restart")
		ackRepo = memstore.NewAcknowledgementRepository()
	default:
		ackRepo = idb.NewPostgresAcknowledgementRepository(db, cfg.AckStorageKey)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	clk := clock.System{Location: cfg.Location}

	acks := app.NewAcknowledgementService(ackRepo, clk, logger.Component("acknowledgements"))
	if err := acks.Load(ctx); err != nil {
		mainLogger.WithError(err).Warn("Could not load acknowledgements, will retry on next change")
	}

	notifications := app.NewNotificationService(
		idb.NewPostgresAssistanceRepository(db, cfg.Location),
		idb.NewPostgresCampaignRepository(db, cfg.Location),
		acks,
		clk,
		logger.Component("notifications"),
		app.WithWindows(app.Windows{
			DueSoonDays:       cfg.DueSoonDays,
			EndingSoonDays:    cfg.EndingSoonDays,
			RecentlyEndedDays: cfg.RecentlyEndedDays,
		}),
		app.WithRecorder(m),
		app.WithFetchTimeout(cfg.FetchTimeout),
	)
	if _, err := notifications.Refresh(ctx, app.TriggerStartup); err != nil {
		mainLogger.WithError(err).Warn("Initial refresh failed, notifications unavailable until the next one succeeds")
	}

	var (
		bot      *telebot.Bot
		digester scheduler.Digester
	)
	if cfg.BotEnabled() {
		bot, err = newBot(cfg, logger.Component("telegram"))
		if err != nil {
			return err
		}
		telegram.RegisterBotCommands(bot, notifications, cfg.AdminTelegramID, logger.Component("telegram"))
		telegram.RegisterAlertHandlers(ctx, bot, notifications, cfg.AdminTelegramID, logger.Component("telegram"))
		digester = app.NewDigestService(notifications, telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, logger.Component("digest"))
		mainLogger.Info("Telegram handlers registered")
	} else {
		mainLogger.Info("TELEGRAM_TOKEN not set, Telegram bot disabled")
	}

	notifScheduler := scheduler.NewNotificationScheduler(
		notifications,
		digester,
		logger.Component("scheduler"),
		cfg.Location,
		cfg.CronSpecRefresh,
		cfg.CronSpecDigest,
		cfg.FetchTimeout+30*time.Second,
	)
	if err := notifScheduler.Start(); err != nil {
		return err
	}
	defer notifScheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(notifications, checks, logger.Component("http")), reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if bot != nil {
		go bot.Start()
	}
	g.Go(func() error {
		<-gctx.Done()
		mainLogger.Info("Shutting down application...")
		if bot != nil {
			bot.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newBot(cfg *config.AppConfig, log *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return bot, nil
}
