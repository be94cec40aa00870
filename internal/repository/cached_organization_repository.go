package repository

import (
	"context"
	"errors"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// CachedOrganizationRepository декоратор над OrganizationRepository с
// read-through кешированием чтений в Redis. Баланс — финансовое состояние,
// поэтому любая его мутация инвалидирует кэш до возврата управления.
type CachedOrganizationRepository struct {
	base  OrganizationRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedOrganizationRepository создает кеширующий репозиторий организаций
func NewCachedOrganizationRepository(base OrganizationRepository, cache *RedisCacheRepository, log *logger.Logger) *CachedOrganizationRepository {
	return &CachedOrganizationRepository{
		base:  base,
		cache: cache,
		log:   log,
	}
}

func organizationCacheKey(id uuid.UUID) string {
	return organizationKeyPrefix + id.String()
}

// Create создает организацию и прогревает кэш
func (r *CachedOrganizationRepository) Create(ctx context.Context, organization domain.Organization) (domain.Organization, error) {
	created, err := r.base.Create(ctx, organization)
	if err != nil {
		return domain.Organization{}, err
	}

	if err := r.cache.Set(ctx, organizationCacheKey(created.ID), created); err != nil {
		r.log.Warnw("Failed to cache organization", "organizationID", created.ID, "error", err)
	}
	return created, nil
}

// GetByID возвращает организацию, сначала пробуя кэш
func (r *CachedOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	var cached domain.Organization
	err := r.cache.Get(ctx, organizationCacheKey(id), &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.log.Warnw("Redis read failed, falling back to database", "organizationID", id, "error", err)
	}

	organization, err := r.base.GetByID(ctx, id)
	if err != nil {
		return domain.Organization{}, err
	}

	if err := r.cache.Set(ctx, organizationCacheKey(id), organization); err != nil {
		r.log.Warnw("Failed to cache organization", "organizationID", id, "error", err)
	}
	return organization, nil
}

// GetAll возвращает все организации (без кеширования списков)
func (r *CachedOrganizationRepository) GetAll(ctx context.Context) ([]domain.Organization, error) {
	return r.base.GetAll(ctx)
}

// IncrementBalance увеличивает баланс и инвалидирует кэш организации
func (r *CachedOrganizationRepository) IncrementBalance(ctx context.Context, id uuid.UUID, amount float64) error {
	if err := r.base.IncrementBalance(ctx, id, amount); err != nil {
		return err
	}

	if err := r.cache.Delete(ctx, organizationCacheKey(id)); err != nil {
		r.log.Warnw("Failed to invalidate organization cache after balance update", "organizationID", id, "error", err)
	}
	return nil
}
