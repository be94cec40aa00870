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

// OrganizationHandler обрабатывает HTTP запросы организаций и пакетов.
type OrganizationHandler struct {
	service service.OrganizationService
	log     *logger.Logger
}

// NewOrganizationHandler создает новый экземпляр OrganizationHandler.
func NewOrganizationHandler(svc service.OrganizationService, log *logger.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		service: svc,
		log:     log,
	}
}

// CreateOrganization обрабатывает POST /organizations
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := req.HandleBody[domain.OrganizationRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	organization, err := h.service.CreateOrganization(ctx, *body)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Organization already exists"}, http.StatusConflict)
		} else {
			h.log.Errorw("Failed to create organization", "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to create organization"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, organization)
}

// GetOrganization обрабатывает GET /organizations/:organization_id
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	ctx := c.Request.Context()

	organizationID, err := uuid.Parse(c.Param("organization_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid organization ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	organization, err := h.service.GetOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Organization not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Failed to get organization", "organizationID", organizationID, "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to get organization"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, organization)
}

// GetOrganizations обрабатывает GET /organizations
func (h *OrganizationHandler) GetOrganizations(c *gin.Context) {
	ctx := c.Request.Context()

	organizations, err := h.service.GetOrganizations(ctx)
	if err != nil {
		h.log.Errorw("Failed to list organizations", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to list organizations"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": organizations})
}

// CreatePackage обрабатывает POST /packages
func (h *OrganizationHandler) CreatePackage(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := req.HandleBody[domain.PackageRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	pkg, err := h.service.CreatePackage(ctx, *body)
	if err != nil {
		h.log.Errorw("Failed to create package", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to create package"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, pkg)
}

// GetPackage обрабатывает GET /packages/:package_id
func (h *OrganizationHandler) GetPackage(c *gin.Context) {
	ctx := c.Request.Context()

	packageID, err := uuid.Parse(c.Param("package_id"))
	if err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid package ID"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	pkg, err := h.service.GetPackage(ctx, packageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Package not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Failed to get package", "packageID", packageID, "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to get package"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// GetPackages обрабатывает GET /packages
func (h *OrganizationHandler) GetPackages(c *gin.Context) {
	ctx := c.Request.Context()

	packages, err := h.service.GetPackages(ctx)
	if err != nil {
		h.log.Errorw("Failed to list packages", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to list packages"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages})
}
