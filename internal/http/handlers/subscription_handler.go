package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/internal/service"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/Dhoini/Donation-platform/pkg/req"
	"github.com/Dhoini/Donation-platform/pkg/res"
)

// SubscriptionHandler обрабатывает HTTP запросы регулярных пожертвований.
type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

// NewSubscriptionHandler создает новый экземпляр SubscriptionHandler.
func NewSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: svc,
		log:     log,
	}
}

// CreateSubscriptionResponse ответ на создание подписки.
type CreateSubscriptionResponse struct {
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	ClientSecret         string `json:"client_secret,omitempty"`
}

// CreateSubscription обрабатывает POST /subscriptions
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := req.HandleBody[domain.SubscriptionRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	stripeSubscriptionID, clientSecret, err := h.service.CreateSubscription(ctx, *body)
	if err != nil {
		h.log.Errorw("Failed to create subscription", "error", err)
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Donor, organization or package not found"}, http.StatusNotFound)
		} else {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to create subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, CreateSubscriptionResponse{
		StripeSubscriptionID: stripeSubscriptionID,
		ClientSecret:         clientSecret,
	})
}

// GetSubscription обрабатывает GET /subscriptions/:subscription_id
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	stripeSubscriptionID := c.Param("subscription_id")

	subscription, err := h.service.GetSubscription(ctx, stripeSubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Subscription not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Failed to get subscription", "stripeSubscriptionID", stripeSubscriptionID, "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to get subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, subscription)
}

// CancelSubscription обрабатывает DELETE /subscriptions/:subscription_id
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	stripeSubscriptionID := c.Param("subscription_id")

	if err := h.service.CancelSubscription(ctx, stripeSubscriptionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Subscription not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Failed to cancel subscription", "stripeSubscriptionID", stripeSubscriptionID, "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to cancel subscription"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancellation_requested"})
}

// GetDonorSubscriptions обрабатывает GET /donors/:donor_id/subscriptions
func (h *SubscriptionHandler) GetDonorSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()

	donorID, err := uuid.Parse(c.Param("donor_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid donor ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	subscriptions, err := h.service.GetDonorSubscriptions(ctx, donorID)
	if err != nil {
		h.log.Errorw("Failed to list donor subscriptions", "donorID", donorID, "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to list subscriptions"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subscriptions})
}

// GetSubscriptionTransactions обрабатывает GET /subscriptions/:subscription_id/transactions
// subscription_id здесь - локальный UUID подписки.
func (h *SubscriptionHandler) GetSubscriptionTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	subscriptionID, err := uuid.Parse(c.Param("subscription_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid subscription ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	transactions, err := h.service.GetSubscriptionTransactions(ctx, subscriptionID)
	if err != nil {
		h.log.Errorw("Failed to list subscription transactions", "subscriptionID", subscriptionID, "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to list transactions"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
