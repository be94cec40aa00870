package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// DonorRepository интерфейс репозитория жертвователей.
type DonorRepository interface {
	// Create создает нового жертвователя.
	Create(ctx context.Context, donor domain.Donor) (domain.Donor, error)

	// GetByID возвращает жертвователя по ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Donor, error)

	// GetByEmail возвращает жертвователя по email.
	GetByEmail(ctx context.Context, email string) (domain.Donor, error)

	// GetAll возвращает всех жертвователей.
	GetAll(ctx context.Context) ([]domain.Donor, error)

	// Update обновляет данные жертвователя.
	Update(ctx context.Context, donor domain.Donor) (domain.Donor, error)

	// SetVerified помечает жертвователя как подтвержденного.
	SetVerified(ctx context.Context, id uuid.UUID) error
}

// InMemoryDonorRepository реализация репозитория жертвователей в памяти
type InMemoryDonorRepository struct {
	donors map[uuid.UUID]domain.Donor
	mutex  sync.RWMutex
	log    *logger.Logger
}

// NewInMemoryDonorRepository создает новый репозиторий жертвователей в памяти
func NewInMemoryDonorRepository(log *logger.Logger) *InMemoryDonorRepository {
	return &InMemoryDonorRepository{
		donors: make(map[uuid.UUID]domain.Donor),
		log:    log,
	}
}

// Create создает нового жертвователя
func (r *InMemoryDonorRepository) Create(ctx context.Context, donor domain.Donor) (domain.Donor, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.donors {
		if existing.Email == donor.Email {
			return domain.Donor{}, ErrDuplicate
		}
	}

	if donor.ID == uuid.Nil {
		donor.ID = uuid.New()
	}
	now := time.Now()
	donor.CreatedAt = now
	donor.UpdatedAt = now
	r.donors[donor.ID] = donor
	return donor, nil
}

// GetByID возвращает жертвователя по ID
func (r *InMemoryDonorRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Donor, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	donor, ok := r.donors[id]
	if !ok {
		return domain.Donor{}, ErrNotFound
	}
	return donor, nil
}

// GetByEmail возвращает жертвователя по email
func (r *InMemoryDonorRepository) GetByEmail(ctx context.Context, email string) (domain.Donor, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, donor := range r.donors {
		if donor.Email == email {
			return donor, nil
		}
	}
	return domain.Donor{}, ErrNotFound
}

// GetAll возвращает всех жертвователей
func (r *InMemoryDonorRepository) GetAll(ctx context.Context) ([]domain.Donor, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	donors := make([]domain.Donor, 0, len(r.donors))
	for _, donor := range r.donors {
		donors = append(donors, donor)
	}
	return donors, nil
}

// Update обновляет данные жертвователя
func (r *InMemoryDonorRepository) Update(ctx context.Context, donor domain.Donor) (domain.Donor, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.donors[donor.ID]; !ok {
		return domain.Donor{}, ErrNotFound
	}

	donor.UpdatedAt = time.Now()
	r.donors[donor.ID] = donor
	return donor, nil
}

// SetVerified помечает жертвователя как подтвержденного
func (r *InMemoryDonorRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	donor, ok := r.donors[id]
	if !ok {
		return ErrNotFound
	}

	donor.Verified = true
	donor.UpdatedAt = time.Now()
	r.donors[id] = donor
	return nil
}
