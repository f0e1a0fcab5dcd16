package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidings-app/tidings/internal/aggregate"
	"github.com/tidings-app/tidings/internal/ai"
	"github.com/tidings-app/tidings/internal/config"
	"github.com/tidings-app/tidings/internal/database"
	"github.com/tidings-app/tidings/internal/delivery"
	"github.com/tidings-app/tidings/internal/dispatch"
	"github.com/tidings-app/tidings/internal/logger"
	"github.com/tidings-app/tidings/internal/recur"
	"github.com/tidings-app/tidings/internal/repository"
	"github.com/tidings-app/tidings/internal/web"
)

const feedName = "Tidings"

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	scheduleRepo := repository.NewScheduleRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	dispatchLog := repository.NewDispatchLogRepository(db)

	var channels []delivery.Channel
	if cfg.TelegramToken != "" {
		tg, err := delivery.NewTelegram(cfg.TelegramToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create telegram channel")
		}
		channels = append(channels, tg)
	} else {
		log.Warn().Msg("TELEGRAM_TOKEN not set, telegram delivery disabled")
	}
	registry := delivery.NewRegistry(log, channels...)
	log.Info().Strs("channels", registry.Channels()).Msg("delivery channels configured")

	var composer dispatch.Composer
	if cfg.AIAPIKey != "" {
		composer = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Info().Str("model", cfg.AIModel).Msg("greeting composer enabled")
	} else {
		log.Info().Msg("AI_API_KEY not set, composed greetings disabled")
	}

	engine := recur.Engine{HorizonDays: cfg.HorizonDays}

	trigger := dispatch.New(scheduleRepo, groupRepo, dispatchLog, registry, composer, engine, dispatch.Config{
		CronSpec:     cfg.DispatchCron,
		Timezone:     cfg.DefaultTZ,
		GroupTimeout: cfg.GroupTimeout,
	}, log)
	if err := trigger.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start dispatch trigger")
	}
	go func() {
		// Catch up right away instead of waiting for the first tick.
		if err := trigger.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("initial dispatch pass failed")
		}
	}()

	agg := aggregate.New(engine, cfg.DefaultTZ, log)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: web.NewServer(scheduleRepo, agg, feedName, cfg.DefaultTZ, cfg.UpcomingLimit, log).Handler(),
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	trigger.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
}
