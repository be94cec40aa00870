package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/internal/service"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/Dhoini/Donation-platform/pkg/req"
	"github.com/Dhoini/Donation-platform/pkg/res"
)

// DonationHandler обрабатывает HTTP запросы разовых пожертвований.
type DonationHandler struct {
	service service.DonationService
	log     *logger.Logger
}

// NewDonationHandler создает новый экземпляр DonationHandler.
func NewDonationHandler(svc service.DonationService, log *logger.Logger) *DonationHandler {
	return &DonationHandler{
		service: svc,
		log:     log,
	}
}

// CreateDonationResponse ответ на создание разового пожертвования.
type CreateDonationResponse struct {
	DonationID   string  `json:"donation_id"`
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}

// CreateDonation обрабатывает POST /donations
func (h *DonationHandler) CreateDonation(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := req.HandleBody[domain.DonationRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	donation, clientSecret, err := h.service.CreateDonation(ctx, *body)
	if err != nil {
		h.log.Errorw("Failed to create donation", "error", err)
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Donor or organization not found"}, http.StatusNotFound)
		} else {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to create donation"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, CreateDonationResponse{
		DonationID:   donation.ID.String(),
		ClientSecret: clientSecret,
		Amount:       donation.Amount,
		Currency:     donation.Currency,
		Status:       string(donation.PayStatus),
		CreatedAt:    donation.CreatedAt.Format(time.RFC3339),
	})
}

// GetDonation обрабатывает GET /donations/:donation_id
func (h *DonationHandler) GetDonation(c *gin.Context) {
	ctx := c.Request.Context()

	donationID, err := uuid.Parse(c.Param("donation_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid donation ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	donation, err := h.service.GetDonation(ctx, donationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Donation not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Failed to get donation", "donationID", donationID, "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to get donation"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, donation)
}

// GetDonorDonations обрабатывает GET /donors/:donor_id/donations
func (h *DonationHandler) GetDonorDonations(c *gin.Context) {
	ctx := c.Request.Context()

	donorID, err := uuid.Parse(c.Param("donor_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid donor ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	donations, err := h.service.GetDonorDonations(ctx, donorID)
	if err != nil {
		h.log.Errorw("Failed to list donor donations", "donorID", donorID, "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to list donations"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"donations": donations})
}
