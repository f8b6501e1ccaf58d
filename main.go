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

	"contentpilot/domain/model"
	"contentpilot/infrastructure/clients/facebook"
	"contentpilot/infrastructure/clients/instagram"
	"contentpilot/infrastructure/configuration"
	"contentpilot/infrastructure/logger"
	"contentpilot/infrastructure/notify"
	"contentpilot/infrastructure/persistence"
	"contentpilot/infrastructure/realtime"
	httpHandler "contentpilot/interfaces/http"
	"contentpilot/server"
	"contentpilot/usecase"

	"golang.org/x/sync/errgroup"
)

const workerScheduleName = "contentpilot-worker-tick"

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	if err := persistence.EnsureCoreSchema(db); err != nil {
		logger.GetLogger().WithField("error", err).Error("Schema migration failed")
		os.Exit(1)
	}
	logger.GetLogger().Info("Database connected.")

	cipher, err := persistence.NewTokenCipher(configuration.C.Crypto.TokenKey)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Token cipher initialization failed; set TOKEN_KEY to a hex-encoded 32-byte key")
		os.Exit(1)
	}

	jobRepo := persistence.NewJobRepository(db)
	postRepo := persistence.NewPostRepository(db)
	connRepo := persistence.NewConnectionRepository(db, cipher)
	scheduleRepo := persistence.NewScheduleRepository(db)

	signalTransport, waker := buildSignal(ctx)

	hub := realtime.NewProgressHub(time.Duration(configuration.C.Stream.HeartbeatSec) * time.Second)

	igClient := instagram.NewClient(&instagram.Config{
		BaseURL:         configuration.C.Platforms.Instagram.BaseURL,
		PollInterval:    time.Duration(configuration.C.Platforms.Instagram.PollIntervalSec) * time.Second,
		PollMaxAttempts: configuration.C.Platforms.Instagram.PollMaxAttempts,
	})
	fbClient := facebook.NewClient(&facebook.Config{
		BaseURL: configuration.C.Platforms.Facebook.BaseURL,
	})

	guard := usecase.NewConnectionGuard(connRepo)
	retryBase := time.Duration(configuration.C.Worker.RetryBaseDelaySec) * time.Second
	dispatcher := usecase.NewDispatcher(jobRepo, retryBase)
	dispatcher.Register(model.JobTypePublishInstagram, usecase.NewInstagramPublisher(postRepo, guard, igClient, hub))
	dispatcher.Register(model.JobTypePublishFacebook, usecase.NewFacebookPublisher(postRepo, guard, fbClient, hub))
	dispatcher.Register(model.JobTypeRefreshMetrics, usecase.NewMetricsRefresher(postRepo, guard, igClient, fbClient, time.Hour))

	postUsecase := usecase.NewPostUsecase(postRepo, jobRepo, signalTransport)
	postHandler := httpHandler.NewPostHandler(postUsecase, hub)
	workerHandler := httpHandler.NewWorkerHandler(dispatcher, configuration.C.Worker.BatchSize)

	if app.WorkerSecret == "" {
		logger.GetLogger().Warn("App.WorkerSecret not set; the scheduler trigger endpoint will reject all requests.")
	}

	// Record the tick registration so external schedulers survive restarts.
	if err := scheduleRepo.UpsertRegistration(ctx, &model.ScheduleRegistration{
		Name:     workerScheduleName,
		CronExpr: fmt.Sprintf("*/%d * * * * *", configuration.C.Worker.TickIntervalSec),
	}); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to record worker schedule registration")
	}

	router := server.InitiateRouter(postHandler, workerHandler, app.SecretKey, app.WorkerSecret)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.GetLogger().WithField("port", app.Port).Info("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Polling tick loop. The queue drains on this cadence even when every
	// accelerator transport is down.
	g.Go(func() error {
		interval := time.Duration(configuration.C.Worker.TickIntervalSec) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var wake <-chan struct{}
		if waker != nil {
			ch, err := waker.Wake(ctx)
			if err != nil {
				logger.GetLogger().WithField("error", err).Warn("Wake channel unavailable; relying on the tick interval")
			} else {
				wake = ch
			}
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			case <-wake:
			}
			tickCtx, cancelTick := context.WithTimeout(ctx, interval)
			if _, err := dispatcher.RunBatch(tickCtx, configuration.C.Worker.BatchSize); err != nil && !errors.Is(err, context.Canceled) {
				logger.GetLogger().WithField("error", err).Error("Worker tick failed")
			}
			cancelTick()
		}
	})

	g.Go(func() error {
		select {
		case <-interrupt:
			logger.GetLogger().Info("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Application exited with error")
	}
	logger.GetLogger().Info("Application stopped")
}

// buildSignal constructs the configured accelerator transport. All of them are
// optional; a broken transport degrades to plain interval polling.
func buildSignal(ctx context.Context) (notify.ISignal, notify.IWaker) {
	cfg := configuration.C.Notify
	switch cfg.Transport {
	case "redis":
		rs, err := notify.NewRedisSignal(
			ctx,
			fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
			configuration.C.RedisClient.Username,
			configuration.C.RedisClient.Password,
			cfg.Channel,
		)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without wake signals")
			return nil, nil
		}
		logger.GetLogger().Info("Redis wake transport initialized successfully.")
		return rs, rs
	case "pubsub":
		ps, err := notify.NewPubSubSignal(ctx, cfg.PubsubProjectID, cfg.PubsubTopic)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - continuing without wake signals")
			return nil, nil
		}
		return ps, nil
	case "servicebus":
		sb, err := notify.NewServiceBusSignal(cfg.ServiceBusNS, cfg.ServiceBusQueue)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without wake signals")
			return nil, nil
		}
		return sb, nil
	case "", "none":
		logger.GetLogger().Info("No wake transport configured; using interval polling only")
		return nil, nil
	default:
		logger.GetLogger().WithField("transport", cfg.Transport).Warn("Unknown wake transport; using interval polling only")
		return nil, nil
	}
}
