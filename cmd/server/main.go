package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/Donation-platform/config"
	"github.com/Dhoini/Donation-platform/internal/app"
	"github.com/Dhoini/Donation-platform/internal/http/routes"
	"github.com/Dhoini/Donation-platform/internal/integration/ghl"
	"github.com/Dhoini/Donation-platform/internal/integration/stripe"
	"github.com/Dhoini/Donation-platform/internal/kafka/producer"
	"github.com/Dhoini/Donation-platform/internal/metrics"
	"github.com/Dhoini/Donation-platform/internal/notifications"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/internal/repository/postgres"
	"github.com/Dhoini/Donation-platform/internal/service"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var log *logger.Logger

func init() {
	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prometheus
	promRegistry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(promRegistry, log)

	// Подключение к базе данных
	dbPool, err := postgres.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// Репозитории
	subscriptionRepo := postgres.NewPostgresSubscriptionRepository(dbPool, log)
	transactionRepo := postgres.NewPostgresTransactionRepository(dbPool, log)
	donationRepo := postgres.NewPostgresDonationRepository(dbPool, log)
	donorRepo := postgres.NewPostgresDonorRepository(dbPool, log)
	packageRepo := postgres.NewPostgresPackageRepository(dbPool, log)

	var organizationRepo repository.OrganizationRepository = postgres.NewPostgresOrganizationRepository(dbPool, log)

	// Redis кэш организаций - опционален: без него читаем напрямую из базы
	if cfg.Redis.Addr != "" {
		cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warnw("Redis unavailable, organization cache disabled", "error", err)
		} else {
			defer cache.Close()
			organizationRepo = repository.NewCachedOrganizationRepository(organizationRepo, cache, log)
		}
	}

	// Kafka продюсер доменных событий - опционален
	var eventProducer producer.EventProducer
	if len(cfg.Kafka.Brokers) > 0 {
		eventProducer, err = producer.NewKafkaDonationProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Warnw("Kafka unavailable, domain events disabled", "error", err)
			eventProducer = nil
		} else {
			defer eventProducer.Close()
		}
	}

	// Внешние интеграции
	stripeClient := stripe.NewStripeClient(cfg.Stripe.SecretKey, log)
	emailSender := notifications.NewSender(cfg.Email.SendGridAPIKey, cfg.Email.FromName, cfg.Email.FromEmail, log)

	var ghlClient *ghl.Client
	if cfg.GHL.BaseURL != "" && cfg.GHL.APIKey != "" {
		ghlClient = ghl.NewClient(cfg.GHL.BaseURL, cfg.GHL.APIKey, log)
	}

	// Сервисы
	services := app.Services{
		Webhook: service.NewWebhookService(
			subscriptionRepo, transactionRepo, organizationRepo, donationRepo,
			packageRepo, donorRepo, emailSender, eventProducer, webhookMetrics,
			cfg.App.BaseURL, log,
		),
		Donation:     service.NewDonationService(donationRepo, donorRepo, organizationRepo, stripeClient, log),
		Subscription: service.NewSubscriptionService(subscriptionRepo, transactionRepo, donorRepo, organizationRepo, packageRepo, stripeClient, log),
		Donor:        service.NewDonorService(donorRepo, ghlClient, cfg.Auth.JWTSecret, log),
		Organization: service.NewOrganizationService(organizationRepo, packageRepo, log),
	}

	// Установка режима Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	application := app.NewApp(cfg, services, promRegistry, log)

	router := gin.New()
	routes.SetupRoutes(router, application, log)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("Starting HTTP server", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
