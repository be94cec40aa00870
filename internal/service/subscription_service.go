package service

import (
	"context"
	"fmt"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/integration/stripe"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// SubscriptionService управляет регулярными пожертвованиями.
// Локальные строки подписок создает ТОЛЬКО обработчик вебхука: этот сервис
// инициирует подписку в Stripe, а зеркало появится с событием
// customer.subscription.created.
type SubscriptionService interface {
	// CreateSubscription создает подписку в Stripe. Возвращает Stripe
	// Subscription ID и client secret первого платежа.
	CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (stripeSubscriptionID, clientSecret string, err error)

	// CancelSubscription отменяет подписку в Stripe. Локальная запись будет
	// переведена в CANCELED событием customer.subscription.deleted.
	CancelSubscription(ctx context.Context, stripeSubscriptionID string) error

	// GetSubscription возвращает локальное зеркало подписки.
	GetSubscription(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error)

	// GetDonorSubscriptions возвращает подписки жертвователя.
	GetDonorSubscriptions(ctx context.Context, donorID uuid.UUID) ([]domain.Subscription, error)

	// GetSubscriptionTransactions возвращает транзакции биллинговых циклов подписки.
	GetSubscriptionTransactions(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionTransaction, error)
}

type subscriptionService struct {
	subscriptions repository.SubscriptionRepository
	transactions  repository.TransactionRepository
	donors        repository.DonorRepository
	organizations repository.OrganizationRepository
	packages      repository.PackageRepository
	stripeClient  stripe.Client
	log           *logger.Logger
}

// NewSubscriptionService создает новый сервис подписок.
func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	transactions repository.TransactionRepository,
	donors repository.DonorRepository,
	organizations repository.OrganizationRepository,
	packages repository.PackageRepository,
	stripeClient stripe.Client,
	log *logger.Logger,
) SubscriptionService {
	return &subscriptionService{
		subscriptions: subscriptions,
		transactions:  transactions,
		donors:        donors,
		organizations: organizations,
		packages:      packages,
		stripeClient:  stripeClient,
		log:           log,
	}
}

// CreateSubscription создает подписку в Stripe.
func (s *subscriptionService) CreateSubscription(ctx context.Context, req domain.SubscriptionRequest) (string, string, error) {
	donorID, err := uuid.Parse(req.DonorID)
	if err != nil {
		return "", "", fmt.Errorf("invalid donor ID: %w", err)
	}
	organizationID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return "", "", fmt.Errorf("invalid organization ID: %w", err)
	}
	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		return "", "", fmt.Errorf("invalid package ID: %w", err)
	}

	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return "", "", fmt.Errorf("failed to look up donor: %w", err)
	}
	if _, err := s.organizations.GetByID(ctx, organizationID); err != nil {
		return "", "", fmt.Errorf("failed to look up organization: %w", err)
	}
	if _, err := s.packages.GetByID(ctx, packageID); err != nil {
		return "", "", fmt.Errorf("failed to look up package: %w", err)
	}

	stripeCustomerID, err := s.stripeClient.GetOrCreateCustomer(ctx, donorID, donor.Email)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve stripe customer: %w", err)
	}

	idempotencyKey := uuid.New().String()
	stripeSubscriptionID, clientSecret, err := s.stripeClient.CreateSubscription(ctx, stripeCustomerID, req.PriceID, donorID, organizationID, packageID, idempotencyKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to create stripe subscription: %w", err)
	}

	s.log.Infow("Subscription initiated", "stripeSubscriptionID", stripeSubscriptionID, "donorID", donorID, "packageID", packageID)
	return stripeSubscriptionID, clientSecret, nil
}

// CancelSubscription отменяет подписку в Stripe.
func (s *subscriptionService) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	if _, err := s.subscriptions.GetByStripeID(ctx, stripeSubscriptionID); err != nil {
		return fmt.Errorf("failed to look up subscription: %w", err)
	}

	if err := s.stripeClient.CancelSubscription(ctx, stripeSubscriptionID); err != nil {
		return fmt.Errorf("failed to cancel stripe subscription: %w", err)
	}

	s.log.Infow("Subscription cancellation requested", "stripeSubscriptionID", stripeSubscriptionID)
	return nil
}

// GetSubscription возвращает локальное зеркало подписки.
func (s *subscriptionService) GetSubscription(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	return s.subscriptions.GetByStripeID(ctx, stripeSubscriptionID)
}

// GetDonorSubscriptions возвращает подписки жертвователя.
func (s *subscriptionService) GetDonorSubscriptions(ctx context.Context, donorID uuid.UUID) ([]domain.Subscription, error) {
	return s.subscriptions.GetByDonorID(ctx, donorID)
}

// GetSubscriptionTransactions возвращает транзакции подписки.
func (s *subscriptionService) GetSubscriptionTransactions(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionTransaction, error) {
	return s.transactions.GetBySubscriptionID(ctx, subscriptionID)
}
