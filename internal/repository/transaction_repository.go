package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// TransactionRepository интерфейс репозитория транзакций биллинговых циклов.
// Ключ согласования — stripe_invoice_id; строки никогда не удаляются.
type TransactionRepository interface {
	// Upsert вставляет или обновляет транзакцию по stripe_invoice_id.
	Upsert(ctx context.Context, transaction domain.SubscriptionTransaction) (domain.SubscriptionTransaction, error)

	// GetByInvoiceID возвращает транзакцию по stripe_invoice_id.
	GetByInvoiceID(ctx context.Context, stripeInvoiceID string) (domain.SubscriptionTransaction, error)

	// GetBySubscriptionID возвращает транзакции подписки.
	GetBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionTransaction, error)
}

// InMemoryTransactionRepository реализация репозитория транзакций в памяти
type InMemoryTransactionRepository struct {
	byInvoiceID map[string]domain.SubscriptionTransaction
	mutex       sync.RWMutex
	log         *logger.Logger
}

// NewInMemoryTransactionRepository создает новый репозиторий транзакций в памяти
func NewInMemoryTransactionRepository(log *logger.Logger) *InMemoryTransactionRepository {
	return &InMemoryTransactionRepository{
		byInvoiceID: make(map[string]domain.SubscriptionTransaction),
		log:         log,
	}
}

// Upsert вставляет или обновляет транзакцию по stripe_invoice_id
func (r *InMemoryTransactionRepository) Upsert(ctx context.Context, transaction domain.SubscriptionTransaction) (domain.SubscriptionTransaction, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	existing, ok := r.byInvoiceID[transaction.StripeInvoiceID]
	if !ok {
		if transaction.ID == uuid.Nil {
			transaction.ID = uuid.New()
		}
		transaction.CreatedAt = now
		transaction.UpdatedAt = now
		r.byInvoiceID[transaction.StripeInvoiceID] = transaction
		return transaction, nil
	}

	existing.Status = transaction.Status
	existing.Amount = transaction.Amount
	existing.Currency = transaction.Currency
	existing.InvoiceURL = transaction.InvoiceURL
	existing.InvoicePDF = transaction.InvoicePDF
	existing.PeriodStart = transaction.PeriodStart
	existing.PeriodEnd = transaction.PeriodEnd
	existing.UpdatedAt = now
	r.byInvoiceID[existing.StripeInvoiceID] = existing
	return existing, nil
}

// GetByInvoiceID возвращает транзакцию по stripe_invoice_id
func (r *InMemoryTransactionRepository) GetByInvoiceID(ctx context.Context, stripeInvoiceID string) (domain.SubscriptionTransaction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	transaction, ok := r.byInvoiceID[stripeInvoiceID]
	if !ok {
		return domain.SubscriptionTransaction{}, ErrNotFound
	}
	return transaction, nil
}

// GetBySubscriptionID возвращает транзакции подписки
func (r *InMemoryTransactionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionTransaction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var transactions []domain.SubscriptionTransaction
	for _, transaction := range r.byInvoiceID {
		if transaction.SubscriptionID == subscriptionID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}
