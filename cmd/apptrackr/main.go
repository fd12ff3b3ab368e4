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

	"go.uber.org/zap"

	"apptrackr/internal/api"
	"apptrackr/internal/auth"
	"apptrackr/internal/automation"
	awsclient "apptrackr/internal/common/aws"
	"apptrackr/internal/common/config"
	"apptrackr/internal/common/database"
	"apptrackr/internal/common/logger"
	"apptrackr/internal/common/observability"
	"apptrackr/internal/notify"
	"apptrackr/internal/scheduler"
	"apptrackr/internal/store"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting apptrackr",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()

	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	st := store.New(pg.DB)
	if err := st.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	engine, err := automation.NewEngine(automation.NewPostgresStore(pg.DB), automation.Config{
		GracePeriod: cfg.Automation.GracePeriod,
		JobName:     cfg.Automation.JobName,
	}, log)
	if err != nil {
		zapLog.Fatal("automation engine init failed", zap.Error(err))
	}

	dispatcher := newDispatcher(ctx, cfg, st, log, zapLog)

	sched, err := scheduler.New(scheduler.Dependencies{
		Runner:     engine,
		Locker:     redis,
		Dispatcher: dispatcher,
		Logger:     log,
	}, &scheduler.Config{
		Schedule:        cfg.Automation.Schedule,
		LockTTL:         cfg.Automation.LockTTL,
		RunTimeout:      cfg.Automation.RunTimeout,
		DispatchTimeout: cfg.Automation.DispatchTimeout,
	})
	if err != nil {
		zapLog.Fatal("scheduler init failed", zap.Error(err))
	}
	if cfg.Automation.Enabled {
		if err := sched.Start(); err != nil {
			zapLog.Fatal("scheduler start failed", zap.Error(err))
		}
	} else {
		zapLog.Info("Background automation disabled")
	}

	authService, err := auth.NewService(auth.ServiceDependencies{
		Users:  st,
		Redis:  redis.Client,
		Logger: log,
	}, &auth.Config{
		SessionTTL: cfg.Auth.SessionTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		zapLog.Fatal("auth init failed", zap.Error(err))
	}

	server := api.New(api.Dependencies{
		Store:  st,
		Auth:   authService,
		Passes: sched,
		Health: database.NewHealthChecker(2*time.Second, map[string]database.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Observability: obs,
		Logger:        log,
		JobName:       cfg.Automation.JobName,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		zapLog.Error("Scheduler stop failed", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("apptrackr stopped")
}

// newDispatcher builds the SES/SNS fan-out from config. It returns a
// dispatcher with no channels when notifications are disabled or AWS
// configuration cannot be loaded.
func newDispatcher(ctx context.Context, cfg *config.Config, st *store.Store, log logger.Logger, zapLog *zap.Logger) *notify.Dispatcher {
	deps := notify.Dependencies{Users: st, Logger: log}
	if !cfg.Notifications.Email.Enabled && !cfg.Notifications.SNS.Enabled {
		return notify.NewDispatcher(deps)
	}

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Error("AWS config load failed, external notifications disabled", zap.Error(err))
		return notify.NewDispatcher(deps)
	}
	if cfg.Notifications.Email.Enabled {
		deps.Email = awsclient.NewSESClient(awsCfg, cfg.Notifications.Email.FromEmail)
	}
	if cfg.Notifications.SNS.Enabled {
		deps.Events = awsclient.NewSNSClient(awsCfg, cfg.Notifications.SNS.TopicARN)
	}
	zapLog.Info("External notifications enabled",
		zap.Bool("email", deps.Email != nil),
		zap.Bool("sns", deps.Events != nil),
	)
	return notify.NewDispatcher(deps)
}
