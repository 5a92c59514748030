package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/pushline/push-api/internal/config"
	"github.com/pushline/push-api/internal/handler"
	clickHandler "github.com/pushline/push-api/internal/handler/click"
	notificationHandler "github.com/pushline/push-api/internal/handler/notification"
	scheduledHandler "github.com/pushline/push-api/internal/handler/scheduled"
	subscriptionHandler "github.com/pushline/push-api/internal/handler/subscription"
	"github.com/pushline/push-api/internal/middleware"
	"github.com/pushline/push-api/internal/repository/postgres"
	"github.com/pushline/push-api/internal/router"
	clickService "github.com/pushline/push-api/internal/service/click"
	"github.com/pushline/push-api/internal/service/delivery"
	"github.com/pushline/push-api/internal/service/dispatch"
	"github.com/pushline/push-api/internal/service/keyring"
	notificationService "github.com/pushline/push-api/internal/service/notification"
	subscriptionService "github.com/pushline/push-api/internal/service/subscription"
	"github.com/pushline/push-api/internal/worker"
	"github.com/pushline/push-api/pkg/auth"
	"github.com/pushline/push-api/pkg/logger"
	redisBroker "github.com/pushline/push-api/pkg/messaging/redis"
	"github.com/pushline/push-api/pkg/metrics"
	"github.com/pushline/push-api/pkg/push"
)

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

	appMetrics := metrics.NewMetrics("pushapi")
	if err := appMetrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	// Repositories
	clientRepo := postgres.NewClientRepository(db)
	domainRepo := postgres.NewDomainRepository(db)
	vapidKeyRepo := postgres.NewVAPIDKeyRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	subscriberRepo := postgres.NewSubscriberRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	deliveryRepo := postgres.NewDeliveryRepository(db)
	clickRepo := postgres.NewClickRepository(db)

	// Services
	subscriptionSvc := subscriptionService.NewService(subscriberRepo, domainRepo, broker, appLogger)
	notificationSvc := notificationService.NewService(notificationRepo, templateRepo, clientRepo)
	keyringSvc := keyring.NewService(vapidKeyRepo, cfg.Push.KeyCacheTTL)
	tracker := delivery.NewTracker(deliveryRepo, notificationRepo)
	clickSvc := clickService.NewService(notificationRepo, clickRepo, broker, appLogger, appMetrics)

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

	// Handlers
	serviceAuth := middleware.NewServiceAuth(
		auth.NewServiceTokenService(cfg.Auth.ServiceSecret, cfg.Auth.ServiceTokenTTL),
	)
	r := router.NewRouter(
		serviceAuth,
		subscriptionHandler.NewHandler(subscriptionSvc, keyringSvc),
		notificationHandler.NewHandler(notificationSvc, engine, appLogger),
		clickHandler.NewHandler(clickSvc),
		scheduledHandler.NewHandler(scheduler),
		handler.NewHandler(db),
		router.RouterConfig{
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
			MetricsPrefix:  "pushapi",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("push api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
