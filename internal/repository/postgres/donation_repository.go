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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDonationRepository реализация репозитория разовых пожертвований через PostgreSQL
type PostgresDonationRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresDonationRepository создает новый репозиторий пожертвований через PostgreSQL
func NewPostgresDonationRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresDonationRepository {
	return &PostgresDonationRepository{
		db:  db,
		log: log,
	}
}

const donationColumns = `
	id, donor_id, organization_id, stripe_payment_intent_id, amount, currency,
	pay_status, trx_details, created_at, updated_at
`

// Create создает новую запись пожертвования
func (r *PostgresDonationRepository) Create(ctx context.Context, d domain.Donation) (domain.Donation, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	query := `
		INSERT INTO donations (
			id, donor_id, organization_id, stripe_payment_intent_id, amount, currency,
			pay_status, trx_details, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING ` + donationColumns

	row := r.db.QueryRow(ctx, query,
		d.ID, d.DonorID, d.OrganizationID, d.StripePaymentIntentID,
		d.Amount, d.Currency, d.PayStatus, d.TrxDetails,
	)

	created, err := scanDonation(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Donation{}, repository.ErrDuplicate
		}
		return domain.Donation{}, fmt.Errorf("failed to create donation: %w", err)
	}
	return created, nil
}

// GetByID возвращает пожертвование по ID
func (r *PostgresDonationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`

	donation, err := scanDonation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Donation{}, repository.ErrNotFound
		}
		return domain.Donation{}, fmt.Errorf("failed to get donation: %w", err)
	}
	return donation, nil
}

// GetByPaymentIntentID возвращает пожертвование по ID PaymentIntent.
// Поиск идет по выделенной индексированной колонке, равенством.
func (r *PostgresDonationRepository) GetByPaymentIntentID(ctx context.Context, stripePaymentIntentID string) (domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE stripe_payment_intent_id = $1`

	donation, err := scanDonation(r.db.QueryRow(ctx, query, stripePaymentIntentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Donation{}, repository.ErrNotFound
		}
		return domain.Donation{}, fmt.Errorf("failed to get donation: %w", err)
	}
	return donation, nil
}

// UpdateStatusByPaymentIntentID обновляет статус пожертвования по ID PaymentIntent
func (r *PostgresDonationRepository) UpdateStatusByPaymentIntentID(ctx context.Context, stripePaymentIntentID string, status domain.DonationStatus) error {
	query := `UPDATE donations SET pay_status = $2, updated_at = now() WHERE stripe_payment_intent_id = $1`

	tag, err := r.db.Exec(ctx, query, stripePaymentIntentID, status)
	if err != nil {
		return fmt.Errorf("failed to update donation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByDonorID возвращает пожертвования жертвователя
func (r *PostgresDonationRepository) GetByDonorID(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE donor_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, donation)
	}
	return donations, rows.Err()
}

func scanDonation(row pgx.Row) (domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(
		&d.ID, &d.DonorID, &d.OrganizationID, &d.StripePaymentIntentID, &d.Amount,
		&d.Currency, &d.PayStatus, &d.TrxDetails, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}
