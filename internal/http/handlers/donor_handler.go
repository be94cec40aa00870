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

// DonorHandler обрабатывает HTTP запросы жертвователей.
type DonorHandler struct {
	service service.DonorService
	log     *logger.Logger
}

// NewDonorHandler создает новый экземпляр DonorHandler.
func NewDonorHandler(svc service.DonorService, log *logger.Logger) *DonorHandler {
	return &DonorHandler{
		service: svc,
		log:     log,
	}
}

// LoginRequest запрос на вход.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register обрабатывает POST /donors/register
func (h *DonorHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := req.HandleBody[domain.DonorRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	donor, verificationToken, err := h.service.Register(ctx, *body)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Email already registered"}, http.StatusConflict)
		} else {
			h.log.Errorw("Failed to register donor", "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to register donor"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	// Токен возвращается в ответе: письмо подтверждения отправляется
	// отдельным флоу, а для интеграционных сценариев ответа достаточно.
	c.JSON(http.StatusCreated, gin.H{
		"donor":              donor,
		"verification_token": verificationToken,
	})
}

// Login обрабатывает POST /donors/login
func (h *DonorHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := req.HandleBody[LoginRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	token, err := h.service.Login(ctx, body.Email, body.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid email or password"}, http.StatusUnauthorized)
		} else {
			h.log.Errorw("Failed to login donor", "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to login"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

// Verify обрабатывает GET /donors/verify?token=...
func (h *DonorHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	token := c.Query("token")
	if token == "" {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Missing verification token"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	if err := h.service.Verify(ctx, token); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid or expired token"}, http.StatusBadRequest)
		} else {
			h.log.Errorw("Failed to verify donor", "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to verify donor"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// GetDonor обрабатывает GET /donors/:donor_id
func (h *DonorHandler) GetDonor(c *gin.Context) {
	ctx := c.Request.Context()

	donorID, err := uuid.Parse(c.Param("donor_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid donor ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	donor, err := h.service.GetDonor(ctx, donorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Donor not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Failed to get donor", "donorID", donorID, "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to get donor"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, donor)
}

// UpdateDonor обрабатывает PATCH /donors/:donor_id
func (h *DonorHandler) UpdateDonor(c *gin.Context) {
	ctx := c.Request.Context()

	donorID, err := uuid.Parse(c.Param("donor_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid donor ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	body, err := req.HandleBody[domain.DonorUpdateRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	donor, err := h.service.UpdateDonor(ctx, donorID, *body)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Donor not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Failed to update donor", "donorID", donorID, "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to update donor"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, donor)
}
