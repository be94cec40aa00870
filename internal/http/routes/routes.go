package routes

import (
	"github.com/Dhoini/Donation-platform/internal/app"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes настраивает все маршруты API для Gin роутера
func SetupRoutes(router *gin.Engine, app *app.App, log *logger.Logger) {
	// Промежуточное ПО для всех запросов
	router.Use(app.LoggerMiddleware)
	router.Use(gin.Recovery())

	// Здоровье сервиса и метрики
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		// Вебхуки Stripe. Путь зашит в настройках эндпоинта на стороне
		// Stripe - менять только вместе с ними.
		api.POST("/payments/webhook", app.WebhookHandler.HandleStripeWebhook)

		// Публичные маршруты жертвователей
		donors := api.Group("/donors")
		{
			donors.POST("/register", app.DonorHandler.Register)
			donors.POST("/login", app.DonorHandler.Login)
			donors.GET("/verify", app.DonorHandler.Verify)
		}

		// Публичные каталоги
		api.GET("/organizations", app.OrganizationHandler.GetOrganizations)
		api.GET("/organizations/:organization_id", app.OrganizationHandler.GetOrganization)
		api.GET("/packages", app.OrganizationHandler.GetPackages)
		api.GET("/packages/:package_id", app.OrganizationHandler.GetPackage)

		// Защищенные маршруты (требуют аутентификации)
		auth := api.Group("")
		auth.Use(app.AuthMiddleware.RequireAuth())
		{
			auth.POST("/organizations", app.OrganizationHandler.CreateOrganization)
			auth.POST("/packages", app.OrganizationHandler.CreatePackage)

			auth.GET("/donors/:donor_id", app.DonorHandler.GetDonor)
			auth.PATCH("/donors/:donor_id", app.DonorHandler.UpdateDonor)
			auth.GET("/donors/:donor_id/donations", app.DonationHandler.GetDonorDonations)
			auth.GET("/donors/:donor_id/subscriptions", app.SubscriptionHandler.GetDonorSubscriptions)

			donations := auth.Group("/donations")
			{
				donations.POST("", app.DonationHandler.CreateDonation)
				donations.GET("/:donation_id", app.DonationHandler.GetDonation)
			}

			subscriptions := auth.Group("/subscriptions")
			{
				subscriptions.POST("", app.SubscriptionHandler.CreateSubscription)
				subscriptions.GET("/:subscription_id", app.SubscriptionHandler.GetSubscription)
				subscriptions.DELETE("/:subscription_id", app.SubscriptionHandler.CancelSubscription)
				subscriptions.GET("/:subscription_id/transactions", app.SubscriptionHandler.GetSubscriptionTransactions)
			}
		}
	}

	log.Infow("API routes successfully configured")
}
