package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"todoreminder/config"
	"todoreminder/internal/handler"
	"todoreminder/internal/httpserver"
	"todoreminder/internal/kvstore"
	"todoreminder/internal/repository"
	"todoreminder/internal/service"
	"todoreminder/pkg/circuitbreaker"
	"todoreminder/pkg/db"
	"todoreminder/pkg/logger"
	"todoreminder/pkg/mq"
	"todoreminder/pkg/otel"
	"todoreminder/pkg/redis"
)

const serviceName = "todo-reminder"

func main() {
	cfg := config.Load()

	log := logger.NewLoggerWithLevel(os.Getenv("LOG_LEVEL"))
	defer log.Sync()

	log.Info("Starting todo-reminder...",
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("cron", cfg.Reminder.Cron),
		zap.Bool("mq_enabled", cfg.MQ.URL != ""),
	)

	// OpenTelemetry
	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	// Task store
	var (
		tasks     service.TaskReader
		pingTasks func(ctx context.Context) error
	)
	if cfg.DB.IsSQLite() {
		repo, err := repository.OpenSQLite(context.Background(), cfg.DB.Path, log)
		if err != nil {
			log.Fatal("Failed to open SQLite task store", zap.Error(err))
		}
		defer repo.Close()
		tasks, pingTasks = repo, repo.Ping
	} else {
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("Failed to init DB", zap.Error(err))
		}
		defer dbConn.Close()
		repo := repository.NewTaskRepository(dbConn, log)
		tasks, pingTasks = repo, repo.Ping
	}

	// Redis
	rdb, err := redis.Connect(cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()
	store := kvstore.NewRedisStore(rdb)

	readiness := []httpserver.ReadinessCheck{
		{Name: "db", Ping: pingTasks},
		{Name: "redis", Ping: store.Ping},
	}

	// MQ publisher (optional)
	var publisher service.ReminderPublisher
	if cfg.MQ.URL != "" {
		mqPublisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer mqPublisher.Close()

		breakerCfg := circuitbreaker.DefaultConfig()
		breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
			log.Warn("MQ circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
		publisher = service.NewMQReminderPublisher(mqPublisher, circuitbreaker.NewCircuitBreaker(breakerCfg), log)
		readiness = append(readiness, httpserver.ReadinessCheck{
			Name: "mq",
			Ping: func(context.Context) error {
				if !mqPublisher.IsConnected() {
					return errors.New("mq connection closed")
				}
				return nil
			},
		})
	} else {
		log.Info("MQ URL not set, scheduled reminders will only be logged")
	}

	// Services
	settings := service.NewSettingService(store, cfg.Reminder.SettingTTL, log)
	reminders := service.NewReminderService(tasks, store, service.ReminderOptions{
		LockTTL:         cfg.Reminder.LockTTL,
		OverdueStateTTL: cfg.Reminder.OverdueStateTTL,
	}, log)

	location := time.Local
	if tz := cfg.Reminder.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatal("Invalid reminder timezone", zap.String("timezone", tz), zap.Error(err))
		}
		location = loc
	}
	runner := service.NewReminderRunner(reminders, settings, publisher, service.RunnerOptions{
		CronSpec:    cfg.Reminder.Cron,
		ScanTimeout: cfg.Reminder.ScanTimeout,
		Location:    location,
	}, log)

	if err := runner.Start(); err != nil {
		log.Fatal("Failed to start reminder scheduler", zap.Error(err))
	}

	// HTTP server
	router := httpserver.NewRouter(
		handler.NewReminderHandler(runner, log),
		handler.NewSettingHandler(settings, log),
		httpserver.Options{
			JWTSecret:      cfg.JWT.Secret,
			PollRatePerSec: cfg.HTTP.PollRatePerSec,
			PollBurst:      cfg.HTTP.PollBurst,
			ReadinessChecks: readiness,
		},
		log,
	)
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("todo-reminder is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down todo-reminder gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if err := runner.Stop(shutdownCtx); err != nil {
		log.Error("Reminder scheduler did not stop in time", zap.Error(err))
	}

	log.Info("todo-reminder shutdown complete")
}
