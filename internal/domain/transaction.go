package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus статус транзакции биллингового цикла.
type TransactionStatus string

const (
	TransactionStatusPaid   TransactionStatus = "paid"
	TransactionStatusFailed TransactionStatus = "failed"
	TransactionStatusOpen   TransactionStatus = "open"
)

// SubscriptionTransaction представляет собой одну попытку списания по подписке:
// ровно одна строка на инвойс Stripe, ключ согласования — StripeInvoiceID.
// Строки никогда не удаляются.
type SubscriptionTransaction struct {
	ID              uuid.UUID         `json:"id"`
	SubscriptionID  uuid.UUID         `json:"subscription_id"`
	StripeInvoiceID string            `json:"stripe_invoice_id"`
	Amount          float64           `json:"amount"`
	Currency        string            `json:"currency"`
	Status          TransactionStatus `json:"status"`
	InvoiceURL      string            `json:"invoice_url,omitempty"`
	InvoicePDF      string            `json:"invoice_pdf,omitempty"`
	PeriodStart     time.Time         `json:"period_start"`
	PeriodEnd       time.Time         `json:"period_end"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
