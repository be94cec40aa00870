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

// PostgresPackageRepository реализация репозитория пакетов через PostgreSQL
type PostgresPackageRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresPackageRepository создает новый репозиторий пакетов через PostgreSQL
func NewPostgresPackageRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresPackageRepository {
	return &PostgresPackageRepository{
		db:  db,
		log: log,
	}
}

// Create создает новый пакет
func (r *PostgresPackageRepository) Create(ctx context.Context, p domain.Package) (domain.Package, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO packages (id, name, description, amount, currency, billing_interval, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, name, description, amount, currency, billing_interval, created_at
	`

	row := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Description, p.Amount, p.Currency, p.Interval)
	created, err := scanPackage(row)
	if err != nil {
		return domain.Package{}, fmt.Errorf("failed to create package: %w", err)
	}
	return created, nil
}

// GetByID возвращает пакет по ID
func (r *PostgresPackageRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Package, error) {
	query := `SELECT id, name, description, amount, currency, billing_interval, created_at FROM packages WHERE id = $1`

	pkg, err := scanPackage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Package{}, repository.ErrNotFound
		}
		return domain.Package{}, fmt.Errorf("failed to get package: %w", err)
	}
	return pkg, nil
}

// GetAll возвращает все пакеты
func (r *PostgresPackageRepository) GetAll(ctx context.Context) ([]domain.Package, error) {
	query := `SELECT id, name, description, amount, currency, billing_interval, created_at FROM packages ORDER BY amount`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query packages: %w", err)
	}
	defer rows.Close()

	var packages []domain.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

func scanPackage(row pgx.Row) (domain.Package, error) {
	var p domain.Package
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Amount, &p.Currency, &p.Interval, &p.CreatedAt)
	return p, err
}
