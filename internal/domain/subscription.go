package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus статус подписки. Значения — это статусы Stripe в верхнем
// регистре: локальная запись пассивно зеркалирует жизненный цикл Stripe,
// собственной машины состояний нет.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing          SubscriptionStatus = "TRIALING"
	SubscriptionStatusPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled          SubscriptionStatus = "CANCELED"
	SubscriptionStatusUnpaid            SubscriptionStatus = "UNPAID"
	SubscriptionStatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	SubscriptionStatusPaused            SubscriptionStatus = "PAUSED"
)

// SubscriptionStatusFromStripe преобразует статус Stripe в локальный.
func SubscriptionStatusFromStripe(status string) SubscriptionStatus {
	return SubscriptionStatus(strings.ToUpper(status))
}

// Subscription представляет собой локальное зеркало подписки Stripe.
// Ключ согласования — StripeSubscriptionID, а не локальный ID, чтобы
// переживать повторную и неупорядоченную доставку вебхуков.
type Subscription struct {
	ID                   uuid.UUID          `json:"id"`
	StripeSubscriptionID string             `json:"stripe_subscription_id"`
	DonorID              uuid.UUID          `json:"donor_id"`
	OrganizationID       uuid.UUID          `json:"organization_id"`
	PackageID            uuid.UUID          `json:"package_id"`
	Status               SubscriptionStatus `json:"status"`
	CurrentPeriodStart   time.Time          `json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CanceledAt           *time.Time         `json:"canceled_at,omitempty"`
	TrialStart           *time.Time         `json:"trial_start,omitempty"`
	TrialEnd             *time.Time         `json:"trial_end,omitempty"`
	Amount               float64            `json:"amount"`
	Currency             string             `json:"currency"`
	Interval             string             `json:"interval"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// SubscriptionUpdate набор полей, обновляемых событиями customer.subscription.updated.
type SubscriptionUpdate struct {
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
}

// SubscriptionRequest представляет запрос на создание регулярного пожертвования.
type SubscriptionRequest struct {
	DonorID        string `json:"donor_id" validate:"required,uuid4"`
	OrganizationID string `json:"organization_id" validate:"required,uuid4"`
	PackageID      string `json:"package_id" validate:"required,uuid4"`
	PriceID        string `json:"price_id" validate:"required"` // Stripe Price ID пакета
}
