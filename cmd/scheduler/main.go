package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pushline/push-api/internal/config"
	"github.com/pushline/push-api/internal/repository/postgres"
	"github.com/pushline/push-api/internal/service/delivery"
	"github.com/pushline/push-api/internal/service/dispatch"
	"github.com/pushline/push-api/internal/service/keyring"
	subscriptionService "github.com/pushline/push-api/internal/service/subscription"
	"github.com/pushline/push-api/internal/worker"
	"github.com/pushline/push-api/pkg/logger"
	redisBroker "github.com/pushline/push-api/pkg/messaging/redis"
	"github.com/pushline/push-api/pkg/metrics"
	"github.com/pushline/push-api/pkg/push"
)

const metricsAddr = ":9091"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	appMetrics := metrics.NewMetrics("pushscheduler")
	if err := appMetrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	subscriberRepo := postgres.NewSubscriberRepository(db)
	domainRepo := postgres.NewDomainRepository(db)
	vapidKeyRepo := postgres.NewVAPIDKeyRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	deliveryRepo := postgres.NewDeliveryRepository(db)

	subscriptionSvc := subscriptionService.NewService(subscriberRepo, domainRepo, broker, appLogger)
	keyringSvc := keyring.NewService(vapidKeyRepo, cfg.Push.KeyCacheTTL)
	tracker := delivery.NewTracker(deliveryRepo, notificationRepo)

	engine := dispatch.NewEngine(
		notificationRepo,
		subscriptionSvc,
		tracker,
		keyringSvc,
		push.NewWebPushSender(),
		broker,
		dispatch.Config{
			Workers:           cfg.Push.WorkerPoolSize,
			SendTimeout:       cfg.Push.SendTimeout,
			DefaultTTL:        cfg.Push.DefaultTTL,
			SubscriberContact: cfg.Push.SubscriberContact,
		},
		appLogger,
		appMetrics,
	)

	scheduler := worker.NewScheduler(notificationRepo, engine, worker.SchedulerConfig{
		PollInterval: cfg.Scheduler.PollInterval,
		BatchSize:    cfg.Scheduler.BatchSize,
	}, appLogger, appMetrics)

	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.Start(ctx)
	log.Info().
		Dur("poll_interval", cfg.Scheduler.PollInterval).
		Int("batch_size", cfg.Scheduler.BatchSize).
		Msg("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down scheduler...")

	cancel()
	if err := metricsSrv.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close metrics server")
	}

	log.Info().Msg("scheduler exited properly")
}
