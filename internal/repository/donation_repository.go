package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// DonationRepository интерфейс репозитория разовых пожертвований.
// Связь с PaymentIntent — по выделенной колонке stripe_payment_intent_id,
// а не по поиску подстроки в сериализованных деталях.
type DonationRepository interface {
	// Create создает новую запись пожертвования.
	Create(ctx context.Context, donation domain.Donation) (domain.Donation, error)

	// GetByID возвращает пожертвование по ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Donation, error)

	// GetByPaymentIntentID возвращает пожертвование по ID PaymentIntent.
	GetByPaymentIntentID(ctx context.Context, stripePaymentIntentID string) (domain.Donation, error)

	// UpdateStatusByPaymentIntentID обновляет статус пожертвования по ID
	// PaymentIntent. Возвращает ErrNotFound, если записи нет.
	UpdateStatusByPaymentIntentID(ctx context.Context, stripePaymentIntentID string, status domain.DonationStatus) error

	// GetByDonorID возвращает пожертвования жертвователя.
	GetByDonorID(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)
}

// InMemoryDonationRepository реализация репозитория пожертвований в памяти
type InMemoryDonationRepository struct {
	donations map[uuid.UUID]domain.Donation
	mutex     sync.RWMutex
	log       *logger.Logger
}

// NewInMemoryDonationRepository создает новый репозиторий пожертвований в памяти
func NewInMemoryDonationRepository(log *logger.Logger) *InMemoryDonationRepository {
	return &InMemoryDonationRepository{
		donations: make(map[uuid.UUID]domain.Donation),
		log:       log,
	}
}

// Create создает новую запись пожертвования
func (r *InMemoryDonationRepository) Create(ctx context.Context, donation domain.Donation) (domain.Donation, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	now := time.Now()
	donation.CreatedAt = now
	donation.UpdatedAt = now
	r.donations[donation.ID] = donation
	return donation, nil
}

// GetByID возвращает пожертвование по ID
func (r *InMemoryDonationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Donation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	donation, ok := r.donations[id]
	if !ok {
		return domain.Donation{}, ErrNotFound
	}
	return donation, nil
}

// GetByPaymentIntentID возвращает пожертвование по ID PaymentIntent
func (r *InMemoryDonationRepository) GetByPaymentIntentID(ctx context.Context, stripePaymentIntentID string) (domain.Donation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, donation := range r.donations {
		if donation.StripePaymentIntentID == stripePaymentIntentID {
			return donation, nil
		}
	}
	return domain.Donation{}, ErrNotFound
}

// UpdateStatusByPaymentIntentID обновляет статус пожертвования по ID PaymentIntent
func (r *InMemoryDonationRepository) UpdateStatusByPaymentIntentID(ctx context.Context, stripePaymentIntentID string, status domain.DonationStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, donation := range r.donations {
		if donation.StripePaymentIntentID == stripePaymentIntentID {
			donation.PayStatus = status
			donation.UpdatedAt = time.Now()
			r.donations[id] = donation
			return nil
		}
	}
	return ErrNotFound
}

// GetByDonorID возвращает пожертвования жертвователя
func (r *InMemoryDonationRepository) GetByDonorID(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var donations []domain.Donation
	for _, donation := range r.donations {
		if donation.DonorID == donorID {
			donations = append(donations, donation)
		}
	}
	return donations, nil
}
