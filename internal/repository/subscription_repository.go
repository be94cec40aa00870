package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// SubscriptionRepository интерфейс репозитория локальных зеркал подписок Stripe.
// Все мутации ключуются по stripe_subscription_id, чтобы повторная и
// неупорядоченная доставка вебхуков сходилась к одной и той же строке.
type SubscriptionRepository interface {
	// Upsert вставляет подписку при первом событии и обновляет
	// статусные/периодные поля при повторной доставке.
	Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error)

	// UpdateByStripeID обновляет поля подписки по stripe_subscription_id.
	// Отсутствие строки — тихий no-op (семантика updateMany), не ошибка.
	UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, update domain.SubscriptionUpdate) error

	// MarkCanceledByStripeID принудительно переводит подписку в CANCELED
	// и проставляет canceled_at. Отсутствие строки — тихий no-op.
	MarkCanceledByStripeID(ctx context.Context, stripeSubscriptionID string, canceledAt time.Time) error

	// GetByStripeID возвращает подписку по stripe_subscription_id.
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error)

	// GetByDonorID возвращает подписки жертвователя.
	GetByDonorID(ctx context.Context, donorID uuid.UUID) ([]domain.Subscription, error)
}

// InMemorySubscriptionRepository реализация репозитория подписок в памяти
type InMemorySubscriptionRepository struct {
	byStripeID map[string]domain.Subscription
	mutex      sync.RWMutex
	log        *logger.Logger
}

// NewInMemorySubscriptionRepository создает новый репозиторий подписок в памяти
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		byStripeID: make(map[string]domain.Subscription),
		log:        log,
	}
}

// Upsert вставляет или обновляет подписку по stripe_subscription_id
func (r *InMemorySubscriptionRepository) Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	existing, ok := r.byStripeID[subscription.StripeSubscriptionID]
	if !ok {
		if subscription.ID == uuid.Nil {
			subscription.ID = uuid.New()
		}
		subscription.CreatedAt = now
		subscription.UpdatedAt = now
		r.byStripeID[subscription.StripeSubscriptionID] = subscription
		return subscription, nil
	}

	// При повторной доставке обновляем только статусные/периодные поля
	existing.Status = subscription.Status
	existing.CurrentPeriodStart = subscription.CurrentPeriodStart
	existing.CurrentPeriodEnd = subscription.CurrentPeriodEnd
	existing.CancelAtPeriodEnd = subscription.CancelAtPeriodEnd
	existing.CanceledAt = subscription.CanceledAt
	existing.TrialStart = subscription.TrialStart
	existing.TrialEnd = subscription.TrialEnd
	existing.UpdatedAt = now
	r.byStripeID[existing.StripeSubscriptionID] = existing
	return existing, nil
}

// UpdateByStripeID обновляет подписку; отсутствие строки — тихий no-op
func (r *InMemorySubscriptionRepository) UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, update domain.SubscriptionUpdate) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.byStripeID[stripeSubscriptionID]
	if !ok {
		return nil
	}

	existing.Status = update.Status
	existing.CurrentPeriodStart = update.CurrentPeriodStart
	existing.CurrentPeriodEnd = update.CurrentPeriodEnd
	existing.CancelAtPeriodEnd = update.CancelAtPeriodEnd
	existing.CanceledAt = update.CanceledAt
	existing.TrialStart = update.TrialStart
	existing.TrialEnd = update.TrialEnd
	existing.UpdatedAt = time.Now()
	r.byStripeID[stripeSubscriptionID] = existing
	return nil
}

// MarkCanceledByStripeID переводит подписку в CANCELED
func (r *InMemorySubscriptionRepository) MarkCanceledByStripeID(ctx context.Context, stripeSubscriptionID string, canceledAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.byStripeID[stripeSubscriptionID]
	if !ok {
		return nil
	}

	existing.Status = domain.SubscriptionStatusCanceled
	existing.CanceledAt = &canceledAt
	existing.UpdatedAt = time.Now()
	r.byStripeID[stripeSubscriptionID] = existing
	return nil
}

// GetByStripeID возвращает подписку по stripe_subscription_id
func (r *InMemorySubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	subscription, ok := r.byStripeID[stripeSubscriptionID]
	if !ok {
		return domain.Subscription{}, ErrNotFound
	}
	return subscription, nil
}

// GetByDonorID возвращает подписки жертвователя
func (r *InMemorySubscriptionRepository) GetByDonorID(ctx context.Context, donorID uuid.UUID) ([]domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var subscriptions []domain.Subscription
	for _, subscription := range r.byStripeID {
		if subscription.DonorID == donorID {
			subscriptions = append(subscriptions, subscription)
		}
	}
	return subscriptions, nil
}
