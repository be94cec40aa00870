package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// OrganizationRepository интерфейс репозитория организаций.
type OrganizationRepository interface {
	// Create создает новую организацию.
	Create(ctx context.Context, organization domain.Organization) (domain.Organization, error)

	// GetByID возвращает организацию по ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)

	// GetAll возвращает все организации.
	GetAll(ctx context.Context) ([]domain.Organization, error)

	// IncrementBalance безусловно увеличивает баланс организации на amount
	// (в основных единицах валюты). Единственная мутация баланса в системе.
	IncrementBalance(ctx context.Context, id uuid.UUID, amount float64) error
}

// InMemoryOrganizationRepository реализация репозитория организаций в памяти
type InMemoryOrganizationRepository struct {
	organizations map[uuid.UUID]domain.Organization
	mutex         sync.RWMutex
	log           *logger.Logger
}

// NewInMemoryOrganizationRepository создает новый репозиторий организаций в памяти
func NewInMemoryOrganizationRepository(log *logger.Logger) *InMemoryOrganizationRepository {
	return &InMemoryOrganizationRepository{
		organizations: make(map[uuid.UUID]domain.Organization),
		log:           log,
	}
}

// Create создает новую организацию
func (r *InMemoryOrganizationRepository) Create(ctx context.Context, organization domain.Organization) (domain.Organization, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.organizations {
		if existing.Email == organization.Email {
			return domain.Organization{}, ErrDuplicate
		}
	}

	if organization.ID == uuid.Nil {
		organization.ID = uuid.New()
	}
	organization.CreatedAt = time.Now()
	r.organizations[organization.ID] = organization
	return organization, nil
}

// GetByID возвращает организацию по ID
func (r *InMemoryOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	organization, ok := r.organizations[id]
	if !ok {
		return domain.Organization{}, ErrNotFound
	}
	return organization, nil
}

// GetAll возвращает все организации
func (r *InMemoryOrganizationRepository) GetAll(ctx context.Context) ([]domain.Organization, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	organizations := make([]domain.Organization, 0, len(r.organizations))
	for _, organization := range r.organizations {
		organizations = append(organizations, organization)
	}
	return organizations, nil
}

// IncrementBalance увеличивает баланс организации
func (r *InMemoryOrganizationRepository) IncrementBalance(ctx context.Context, id uuid.UUID, amount float64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	organization, ok := r.organizations[id]
	if !ok {
		return ErrNotFound
	}

	organization.Balance += amount
	r.organizations[id] = organization
	return nil
}
