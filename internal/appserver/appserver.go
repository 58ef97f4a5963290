package appserver

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dalsjofors/hyrservice/config"
	repository "github.com/dalsjofors/hyrservice/internal/database/postgres"
	"github.com/dalsjofors/hyrservice/internal/notify"
	"github.com/dalsjofors/hyrservice/internal/service"
	"github.com/dalsjofors/hyrservice/internal/swish"
	"github.com/dalsjofors/hyrservice/internal/transport"
	"github.com/dalsjofors/hyrservice/internal/worker"

	"github.com/dalsjofors/hyrservice/pkg/postgres"
	"github.com/dalsjofors/hyrservice/pkg/queue"
	"github.com/dalsjofors/hyrservice/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	bookingRepo := repository.NewBookingRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	testBookingRepo := repository.NewTestBookingRepository(db)

	var gateway swish.Gateway
	if cfg.Swish.Mode == "production" {
		gateway, err = swish.NewHTTPClient(&cfg.Swish)
		if err != nil {
			logrus.Fatalf("Failed to initialize swish client: %v", err)
		}
		logrus.Info("Swish production client initialized")
	} else {
		gateway = swish.NewMockClient(&cfg.Swish)
		logrus.Info("Swish mock client initialized")
	}

	providers := buildProviders(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// With Redis enabled, deliveries flow through the queue and get
	// retries plus a DLQ; without it, providers are called directly.
	var hooks service.Hooks
	if cfg.Redis.Enabled {
		redisClient := redis.NewRedisClient(&cfg.Redis)
		redisQueue, err := queue.NewRedisQueue(redisClient)
		if err != nil {
			logrus.Fatalf("Failed to initialize redis queue: %v", err)
		}
		defer redisQueue.Close()

		consumer := notify.NewConsumer(redisQueue, providers...)
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logrus.Errorf("Notification consumer error: %v", err)
			}
		}()
		logrus.Info("Notification queue consumer started")

		hooks = notify.NewDispatcher(redisQueue)
	} else {
		logrus.Warn("Redis disabled, notifications delivered without retry")
		hooks = notify.NewDirectDispatcher(providers...)
	}

	services := service.NewServices(cfg, bookingRepo, blockRepo, testBookingRepo, gateway, hooks)

	testBookingWorker := worker.NewTestBookingWorker(services.TestBookings, cfg.Worker.TestBookingInterval)
	go testBookingWorker.Start(ctx)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(cfg, services)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

func buildProviders(cfg *config.Config) []notify.Provider {
	providers := []notify.Provider{notify.NewLogProvider()}

	if cfg.Notify.WebhookURL != "" {
		providers = append(providers, notify.NewWebhookProvider(cfg.Notify.WebhookURL, cfg.Notify.WebhookSecret))
		logrus.Info("Webhook notifications enabled")
	}
	if cfg.Notify.TwilioAccountSID != "" && cfg.Notify.TwilioAuthToken != "" {
		providers = append(providers, notify.NewSMSProvider(&cfg.Notify))
		logrus.Info("SMS notifications enabled")
	}
	return providers
}
