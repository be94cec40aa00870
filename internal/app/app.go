package app

import (
	"github.com/Dhoini/Donation-platform/config"
	"github.com/Dhoini/Donation-platform/internal/http/handlers"
	"github.com/Dhoini/Donation-platform/internal/middleware"
	"github.com/Dhoini/Donation-platform/internal/service"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config              *config.Config
	WebhookHandler      *handlers.WebhookHandler
	DonationHandler     *handlers.DonationHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	DonorHandler        *handlers.DonorHandler
	OrganizationHandler *handlers.OrganizationHandler
	AuthMiddleware      *middleware.JWTMiddleware
	LoggerMiddleware    gin.HandlerFunc
	Registry            *prometheus.Registry
	Logger              *logger.Logger
}

// Services сервисы, которые требуются HTTP слою.
type Services struct {
	Webhook      service.WebhookService
	Donation     service.DonationService
	Subscription service.SubscriptionService
	Donor        service.DonorService
	Organization service.OrganizationService
}

// NewApp создает и инициализирует новый экземпляр приложения
func NewApp(cfg *config.Config, services Services, registry *prometheus.Registry, log *logger.Logger) *App {
	return &App{
		Config:              cfg,
		WebhookHandler:      handlers.NewWebhookHandler(cfg, services.Webhook, log),
		DonationHandler:     handlers.NewDonationHandler(services.Donation, log),
		SubscriptionHandler: handlers.NewSubscriptionHandler(services.Subscription, log),
		DonorHandler:        handlers.NewDonorHandler(services.Donor, log),
		OrganizationHandler: handlers.NewOrganizationHandler(services.Organization, log),
		AuthMiddleware:      middleware.NewJWTMiddleware(cfg.Auth.JWTSecret, log),
		LoggerMiddleware:    middleware.RequestLogger(log),
		Registry:            registry,
		Logger:              log,
	}
}
