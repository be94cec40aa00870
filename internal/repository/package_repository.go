package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// PackageRepository интерфейс репозитория пакетов регулярных пожертвований.
type PackageRepository interface {
	// Create создает новый пакет.
	Create(ctx context.Context, pkg domain.Package) (domain.Package, error)

	// GetByID возвращает пакет по ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Package, error)

	// GetAll возвращает все пакеты.
	GetAll(ctx context.Context) ([]domain.Package, error)
}

// InMemoryPackageRepository реализация репозитория пакетов в памяти
type InMemoryPackageRepository struct {
	packages map[uuid.UUID]domain.Package
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryPackageRepository создает новый репозиторий пакетов в памяти
func NewInMemoryPackageRepository(log *logger.Logger) *InMemoryPackageRepository {
	return &InMemoryPackageRepository{
		packages: make(map[uuid.UUID]domain.Package),
		log:      log,
	}
}

// Create создает новый пакет
func (r *InMemoryPackageRepository) Create(ctx context.Context, pkg domain.Package) (domain.Package, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	pkg.CreatedAt = time.Now()
	r.packages[pkg.ID] = pkg
	return pkg, nil
}

// GetByID возвращает пакет по ID
func (r *InMemoryPackageRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Package, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	pkg, ok := r.packages[id]
	if !ok {
		return domain.Package{}, ErrNotFound
	}
	return pkg, nil
}

// GetAll возвращает все пакеты
func (r *InMemoryPackageRepository) GetAll(ctx context.Context) ([]domain.Package, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	packages := make([]domain.Package, 0, len(r.packages))
	for _, pkg := range r.packages {
		packages = append(packages, pkg)
	}
	return packages, nil
}
