package domain

import (
	"time"

	"github.com/google/uuid"
)

// DonationStatus статус разового пожертвования.
type DonationStatus string

const (
	DonationStatusPending    DonationStatus = "pending"
	DonationStatusProcessing DonationStatus = "processing"
	DonationStatusCompleted  DonationStatus = "completed"
	DonationStatusFailed     DonationStatus = "failed"
	DonationStatusCancelled  DonationStatus = "cancelled"
)

// Donation представляет собой разовое пожертвование через Stripe PaymentIntent.
// Запись создается эндпоинтом создания платежа со статусом pending и доводится
// до терминального статуса обработчиком вебхука. Связь с PaymentIntent идет
// по выделенной индексированной колонке StripePaymentIntentID.
type Donation struct {
	ID                    uuid.UUID      `json:"id"`
	DonorID               uuid.UUID      `json:"donor_id"`
	OrganizationID        uuid.UUID      `json:"organization_id"`
	StripePaymentIntentID string         `json:"stripe_payment_intent_id"`
	Amount                float64        `json:"amount"`
	Currency              string         `json:"currency"`
	PayStatus             DonationStatus `json:"pay_status"`
	TrxDetails            string         `json:"trx_details,omitempty"` // Снимок PaymentIntent для аудита
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// DonationRequest представляет запрос на создание разового пожертвования.
type DonationRequest struct {
	DonorID        string  `json:"donor_id" validate:"required,uuid4"`
	OrganizationID string  `json:"organization_id" validate:"required,uuid4"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	Currency       string  `json:"currency" validate:"required,len=3"`
}
