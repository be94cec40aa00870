package service

import (
	"context"
	"fmt"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// OrganizationService управляет организациями и пакетами пожертвований.
type OrganizationService interface {
	CreateOrganization(ctx context.Context, req domain.OrganizationRequest) (domain.Organization, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	GetOrganizations(ctx context.Context) ([]domain.Organization, error)

	CreatePackage(ctx context.Context, req domain.PackageRequest) (domain.Package, error)
	GetPackage(ctx context.Context, id uuid.UUID) (domain.Package, error)
	GetPackages(ctx context.Context) ([]domain.Package, error)
}

type organizationService struct {
	organizations repository.OrganizationRepository
	packages      repository.PackageRepository
	log           *logger.Logger
}

// NewOrganizationService создает новый сервис организаций.
func NewOrganizationService(organizations repository.OrganizationRepository, packages repository.PackageRepository, log *logger.Logger) OrganizationService {
	return &organizationService{
		organizations: organizations,
		packages:      packages,
		log:           log,
	}
}

// CreateOrganization создает новую организацию с нулевым балансом.
func (s *organizationService) CreateOrganization(ctx context.Context, req domain.OrganizationRequest) (domain.Organization, error) {
	organization := domain.Organization{
		Name:    req.Name,
		Email:   req.Email,
		Balance: 0,
		GHLID:   req.GHLID,
	}

	saved, err := s.organizations.Create(ctx, organization)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}

	s.log.Infow("Organization created", "organizationID", saved.ID, "name", saved.Name)
	return saved, nil
}

// GetOrganization возвращает организацию по ID.
func (s *organizationService) GetOrganization(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	return s.organizations.GetByID(ctx, id)
}

// GetOrganizations возвращает все организации.
func (s *organizationService) GetOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return s.organizations.GetAll(ctx)
}

// CreatePackage создает новый пакет регулярных пожертвований.
func (s *organizationService) CreatePackage(ctx context.Context, req domain.PackageRequest) (domain.Package, error) {
	pkg := domain.Package{
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Interval:    req.Interval,
	}

	saved, err := s.packages.Create(ctx, pkg)
	if err != nil {
		return domain.Package{}, fmt.Errorf("failed to create package: %w", err)
	}

	s.log.Infow("Package created", "packageID", saved.ID, "name", saved.Name, "amount", saved.Amount)
	return saved, nil
}

// GetPackage возвращает пакет по ID.
func (s *organizationService) GetPackage(ctx context.Context, id uuid.UUID) (domain.Package, error) {
	return s.packages.GetByID(ctx, id)
}

// GetPackages возвращает все пакеты.
func (s *organizationService) GetPackages(ctx context.Context) ([]domain.Package, error) {
	return s.packages.GetAll(ctx)
}
