package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSubscriptionRepository реализация репозитория подписок через PostgreSQL
type PostgresSubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый репозиторий подписок через PostgreSQL
func NewPostgresSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:  db,
		log: log,
	}
}

const subscriptionColumns = `
	id, stripe_subscription_id, donor_id, organization_id, package_id, status,
	current_period_start, current_period_end, cancel_at_period_end, canceled_at,
	trial_start, trial_end, amount, currency, billing_interval, created_at, updated_at
`

// Upsert вставляет подписку при первом событии и обновляет статусные/периодные
// поля при повторной доставке. Конфликт разрешается по stripe_subscription_id.
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, s domain.Subscription) (domain.Subscription, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO subscriptions (
			id, stripe_subscription_id, donor_id, organization_id, package_id, status,
			current_period_start, current_period_end, cancel_at_period_end, canceled_at,
			trial_start, trial_end, amount, currency, billing_interval, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at = EXCLUDED.canceled_at,
			trial_start = EXCLUDED.trial_start,
			trial_end = EXCLUDED.trial_end,
			updated_at = now()
		RETURNING ` + subscriptionColumns

	row := r.db.QueryRow(ctx, query,
		s.ID, s.StripeSubscriptionID, s.DonorID, s.OrganizationID, s.PackageID, s.Status,
		s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd, s.CanceledAt,
		s.TrialStart, s.TrialEnd, s.Amount, s.Currency, s.Interval,
	)

	saved, err := scanSubscription(row)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return saved, nil
}

// UpdateByStripeID обновляет подписку; отсутствие строки — тихий no-op
func (r *PostgresSubscriptionRepository) UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, u domain.SubscriptionUpdate) error {
	query := `
		UPDATE subscriptions SET
			status = $2,
			current_period_start = $3,
			current_period_end = $4,
			cancel_at_period_end = $5,
			canceled_at = $6,
			trial_start = $7,
			trial_end = $8,
			updated_at = now()
		WHERE stripe_subscription_id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		stripeSubscriptionID, u.Status, u.CurrentPeriodStart, u.CurrentPeriodEnd,
		u.CancelAtPeriodEnd, u.CanceledAt, u.TrialStart, u.TrialEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.log.Debugw("Subscription update matched no rows", "stripeSubscriptionID", stripeSubscriptionID)
	}
	return nil
}

// MarkCanceledByStripeID переводит подписку в CANCELED; отсутствие строки — тихий no-op
func (r *PostgresSubscriptionRepository) MarkCanceledByStripeID(ctx context.Context, stripeSubscriptionID string, canceledAt time.Time) error {
	query := `
		UPDATE subscriptions SET
			status = $2,
			canceled_at = $3,
			updated_at = now()
		WHERE stripe_subscription_id = $1
	`

	tag, err := r.db.Exec(ctx, query, stripeSubscriptionID, domain.SubscriptionStatusCanceled, canceledAt)
	if err != nil {
		return fmt.Errorf("failed to mark subscription canceled: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.log.Debugw("Subscription cancel matched no rows", "stripeSubscriptionID", stripeSubscriptionID)
	}
	return nil
}

// GetByStripeID возвращает подписку по stripe_subscription_id
func (r *PostgresSubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`

	subscription, err := scanSubscription(r.db.QueryRow(ctx, query, stripeSubscriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, repository.ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("failed to get subscription: %w", err)
	}
	return subscription, nil
}

// GetByDonorID возвращает подписки жертвователя
func (r *PostgresSubscriptionRepository) GetByDonorID(ctx context.Context, donorID uuid.UUID) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE donor_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []domain.Subscription
	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, rows.Err()
}

func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID, &s.StripeSubscriptionID, &s.DonorID, &s.OrganizationID, &s.PackageID, &s.Status,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CanceledAt,
		&s.TrialStart, &s.TrialEnd, &s.Amount, &s.Currency, &s.Interval, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
