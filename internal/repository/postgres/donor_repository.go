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

// PostgresDonorRepository реализация репозитория жертвователей через PostgreSQL
type PostgresDonorRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresDonorRepository создает новый репозиторий жертвователей через PostgreSQL
func NewPostgresDonorRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresDonorRepository {
	return &PostgresDonorRepository{
		db:  db,
		log: log,
	}
}

const donorColumns = `
	id, name, email, password_hash, phone, address, city, postal_code,
	verified, organization_id, ghl_contact_id, created_at, updated_at
`

// Create создает нового жертвователя
func (r *PostgresDonorRepository) Create(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	query := `
		INSERT INTO donors (
			id, name, email, password_hash, phone, address, city, postal_code,
			verified, organization_id, ghl_contact_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING ` + donorColumns

	row := r.db.QueryRow(ctx, query,
		d.ID, d.Name, d.Email, d.PasswordHash, d.Phone, d.Address, d.City,
		d.PostalCode, d.Verified, d.OrganizationID, d.GHLContactID,
	)

	created, err := scanDonor(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Donor{}, repository.ErrDuplicate
		}
		return domain.Donor{}, fmt.Errorf("failed to create donor: %w", err)
	}
	return created, nil
}

// GetByID возвращает жертвователя по ID
func (r *PostgresDonorRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`

	donor, err := scanDonor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Donor{}, repository.ErrNotFound
		}
		return domain.Donor{}, fmt.Errorf("failed to get donor: %w", err)
	}
	return donor, nil
}

// GetByEmail возвращает жертвователя по email
func (r *PostgresDonorRepository) GetByEmail(ctx context.Context, email string) (domain.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE email = $1`

	donor, err := scanDonor(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Donor{}, repository.ErrNotFound
		}
		return domain.Donor{}, fmt.Errorf("failed to get donor by email: %w", err)
	}
	return donor, nil
}

// GetAll возвращает всех жертвователей
func (r *PostgresDonorRepository) GetAll(ctx context.Context) ([]domain.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query donors: %w", err)
	}
	defer rows.Close()

	var donors []domain.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donor: %w", err)
		}
		donors = append(donors, donor)
	}
	return donors, rows.Err()
}

// Update обновляет данные жертвователя
func (r *PostgresDonorRepository) Update(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	query := `
		UPDATE donors SET
			name = $2, phone = $3, address = $4, city = $5, postal_code = $6,
			ghl_contact_id = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + donorColumns

	row := r.db.QueryRow(ctx, query, d.ID, d.Name, d.Phone, d.Address, d.City, d.PostalCode, d.GHLContactID)
	updated, err := scanDonor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Donor{}, repository.ErrNotFound
		}
		return domain.Donor{}, fmt.Errorf("failed to update donor: %w", err)
	}
	return updated, nil
}

// SetVerified помечает жертвователя как подтвержденного
func (r *PostgresDonorRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE donors SET verified = true, updated_at = now() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to verify donor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDonor(row pgx.Row) (domain.Donor, error) {
	var d domain.Donor
	err := row.Scan(
		&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.Phone, &d.Address, &d.City,
		&d.PostalCode, &d.Verified, &d.OrganizationID, &d.GHLContactID, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}
