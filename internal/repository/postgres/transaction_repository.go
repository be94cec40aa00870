package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTransactionRepository реализация репозитория транзакций через PostgreSQL
type PostgresTransactionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresTransactionRepository создает новый репозиторий транзакций через PostgreSQL
func NewPostgresTransactionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{
		db:  db,
		log: log,
	}
}

const transactionColumns = `
	id, subscription_id, stripe_invoice_id, amount, currency, status,
	invoice_url, invoice_pdf, period_start, period_end, created_at, updated_at
`

// Upsert вставляет или обновляет транзакцию. Конфликт разрешается по
// stripe_invoice_id, чтобы повторная доставка инвойс-событий сходилась
// к одной строке.
func (r *PostgresTransactionRepository) Upsert(ctx context.Context, t domain.SubscriptionTransaction) (domain.SubscriptionTransaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `
		INSERT INTO subscription_transactions (
			id, subscription_id, stripe_invoice_id, amount, currency, status,
			invoice_url, invoice_pdf, period_start, period_end, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (stripe_invoice_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			invoice_url = EXCLUDED.invoice_url,
			invoice_pdf = EXCLUDED.invoice_pdf,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			updated_at = now()
		RETURNING ` + transactionColumns

	row := r.db.QueryRow(ctx, query,
		t.ID, t.SubscriptionID, t.StripeInvoiceID, t.Amount, t.Currency, t.Status,
		t.InvoiceURL, t.InvoicePDF, t.PeriodStart, t.PeriodEnd,
	)

	saved, err := scanTransaction(row)
	if err != nil {
		return domain.SubscriptionTransaction{}, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return saved, nil
}

// GetByInvoiceID возвращает транзакцию по stripe_invoice_id
func (r *PostgresTransactionRepository) GetByInvoiceID(ctx context.Context, stripeInvoiceID string) (domain.SubscriptionTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM subscription_transactions WHERE stripe_invoice_id = $1`

	transaction, err := scanTransaction(r.db.QueryRow(ctx, query, stripeInvoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SubscriptionTransaction{}, repository.ErrNotFound
		}
		return domain.SubscriptionTransaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return transaction, nil
}

// GetBySubscriptionID возвращает транзакции подписки
func (r *PostgresTransactionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM subscription_transactions WHERE subscription_id = $1 ORDER BY period_start DESC`

	rows, err := r.db.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.SubscriptionTransaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, rows.Err()
}

func scanTransaction(row pgx.Row) (domain.SubscriptionTransaction, error) {
	var t domain.SubscriptionTransaction
	err := row.Scan(
		&t.ID, &t.SubscriptionID, &t.StripeInvoiceID, &t.Amount, &t.Currency, &t.Status,
		&t.InvoiceURL, &t.InvoicePDF, &t.PeriodStart, &t.PeriodEnd, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}
