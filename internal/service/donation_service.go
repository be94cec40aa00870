package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/integration/stripe"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
)

// DonationService управляет разовыми пожертвованиями.
type DonationService interface {
	// CreateDonation создает PaymentIntent в Stripe и локальную запись
	// пожертвования в статусе pending. Возвращает запись и client secret
	// для подтверждения платежа на фронтенде.
	CreateDonation(ctx context.Context, req domain.DonationRequest) (domain.Donation, string, error)

	// GetDonation возвращает пожертвование по ID.
	GetDonation(ctx context.Context, id uuid.UUID) (domain.Donation, error)

	// GetDonorDonations возвращает пожертвования жертвователя.
	GetDonorDonations(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)
}

type donationService struct {
	donations     repository.DonationRepository
	donors        repository.DonorRepository
	organizations repository.OrganizationRepository
	stripeClient  stripe.Client
	log           *logger.Logger
}

// NewDonationService создает новый сервис разовых пожертвований.
func NewDonationService(
	donations repository.DonationRepository,
	donors repository.DonorRepository,
	organizations repository.OrganizationRepository,
	stripeClient stripe.Client,
	log *logger.Logger,
) DonationService {
	return &donationService{
		donations:     donations,
		donors:        donors,
		organizations: organizations,
		stripeClient:  stripeClient,
		log:           log,
	}
}

// CreateDonation создает разовое пожертвование.
func (s *donationService) CreateDonation(ctx context.Context, req domain.DonationRequest) (domain.Donation, string, error) {
	donorID, err := uuid.Parse(req.DonorID)
	if err != nil {
		return domain.Donation{}, "", fmt.Errorf("invalid donor ID: %w", err)
	}
	organizationID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return domain.Donation{}, "", fmt.Errorf("invalid organization ID: %w", err)
	}

	if _, err := s.donors.GetByID(ctx, donorID); err != nil {
		return domain.Donation{}, "", fmt.Errorf("failed to look up donor: %w", err)
	}
	if _, err := s.organizations.GetByID(ctx, organizationID); err != nil {
		return domain.Donation{}, "", fmt.Errorf("failed to look up organization: %w", err)
	}

	// Stripe принимает суммы в минимальных единицах валюты. Округляем, а не
	// усекаем: 19.99 в float64 это 19.9899..., и усечение списало бы 1998.
	amountMinor := int64(math.Round(req.Amount * 100))
	idempotencyKey := uuid.New().String()

	intentID, clientSecret, err := s.stripeClient.CreatePaymentIntent(ctx, amountMinor, req.Currency, donorID, organizationID, idempotencyKey)
	if err != nil {
		return domain.Donation{}, "", fmt.Errorf("failed to create payment intent: %w", err)
	}

	// Снимок параметров платежа для аудита
	trxDetails, _ := json.Marshal(map[string]interface{}{
		"payment_intent_id": intentID,
		"amount_minor":      amountMinor,
		"currency":          req.Currency,
		"idempotency_key":   idempotencyKey,
	})

	donation := domain.Donation{
		DonorID:               donorID,
		OrganizationID:        organizationID,
		StripePaymentIntentID: intentID,
		Amount:                req.Amount,
		Currency:              req.Currency,
		PayStatus:             domain.DonationStatusPending,
		TrxDetails:            string(trxDetails),
	}

	saved, err := s.donations.Create(ctx, donation)
	if err != nil {
		return domain.Donation{}, "", fmt.Errorf("failed to create donation record: %w", err)
	}

	s.log.Infow("Donation created", "donationID", saved.ID, "paymentIntentID", intentID, "amount", req.Amount, "currency", req.Currency)
	return saved, clientSecret, nil
}

// GetDonation возвращает пожертвование по ID.
func (s *donationService) GetDonation(ctx context.Context, id uuid.UUID) (domain.Donation, error) {
	return s.donations.GetByID(ctx, id)
}

// GetDonorDonations возвращает пожертвования жертвователя.
func (s *donationService) GetDonorDonations(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	return s.donations.GetByDonorID(ctx, donorID)
}
