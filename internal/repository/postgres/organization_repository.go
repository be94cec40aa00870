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

// PostgresOrganizationRepository реализация репозитория организаций через PostgreSQL
type PostgresOrganizationRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresOrganizationRepository создает новый репозиторий организаций через PostgreSQL
func NewPostgresOrganizationRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{
		db:  db,
		log: log,
	}
}

// Create создает новую организацию
func (r *PostgresOrganizationRepository) Create(ctx context.Context, o domain.Organization) (domain.Organization, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}

	query := `
		INSERT INTO organizations (id, name, email, balance, ghl_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, name, email, balance, ghl_id, created_at
	`

	row := r.db.QueryRow(ctx, query, o.ID, o.Name, o.Email, o.Balance, o.GHLID)
	created, err := scanOrganization(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Organization{}, repository.ErrDuplicate
		}
		return domain.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}
	return created, nil
}

// GetByID возвращает организацию по ID
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	query := `SELECT id, name, email, balance, ghl_id, created_at FROM organizations WHERE id = $1`

	organization, err := scanOrganization(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Organization{}, repository.ErrNotFound
		}
		return domain.Organization{}, fmt.Errorf("failed to get organization: %w", err)
	}
	return organization, nil
}

// GetAll возвращает все организации
func (r *PostgresOrganizationRepository) GetAll(ctx context.Context) ([]domain.Organization, error) {
	query := `SELECT id, name, email, balance, ghl_id, created_at FROM organizations ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var organizations []domain.Organization
	for rows.Next() {
		organization, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		organizations = append(organizations, organization)
	}
	return organizations, rows.Err()
}

// IncrementBalance безусловно увеличивает баланс организации.
// Инкремент выполняется на стороне базы одним UPDATE, чтобы конкурентные
// доставки вебхуков не теряли обновления.
func (r *PostgresOrganizationRepository) IncrementBalance(ctx context.Context, id uuid.UUID, amount float64) error {
	query := `UPDATE organizations SET balance = balance + $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to increment organization balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanOrganization(row pgx.Row) (domain.Organization, error) {
	var o domain.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Email, &o.Balance, &o.GHLID, &o.CreatedAt)
	return o, err
}
