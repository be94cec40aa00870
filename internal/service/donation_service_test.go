package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
)

// fakeStripeClient records calls without talking to Stripe.
type fakeStripeClient struct {
	lastAmountMinor int64
	lastCurrency    string
}

func (f *fakeStripeClient) GetOrCreateCustomer(ctx context.Context, donorID uuid.UUID, email string) (string, error) {
	return "cus_fake", nil
}

func (f *fakeStripeClient) CreatePaymentIntent(ctx context.Context, amount int64, currency string, donorID, organizationID uuid.UUID, idempotencyKey string) (string, string, error) {
	f.lastAmountMinor = amount
	f.lastCurrency = currency
	return "pi_fake_1", "pi_fake_1_secret", nil
}

func (f *fakeStripeClient) CreateSubscription(ctx context.Context, stripeCustomerID, priceID string, donorID, organizationID, packageID uuid.UUID, idempotencyKey string) (string, string, error) {
	return "sub_fake_1", "sub_fake_1_secret", nil
}

func (f *fakeStripeClient) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	return nil
}

func TestCreateDonation_CreatesPendingRecord(t *testing.T) {
	log := logger.New(logger.ERROR)
	ctx := context.Background()

	donations := repository.NewInMemoryDonationRepository(log)
	donors := repository.NewInMemoryDonorRepository(log)
	organizations := repository.NewInMemoryOrganizationRepository(log)
	stripeClient := &fakeStripeClient{}

	organization, err := organizations.Create(ctx, domain.Organization{Name: "Shelter", Email: "shelter@example.com"})
	require.NoError(t, err)
	donor, err := donors.Create(ctx, domain.Donor{Name: "Dana", Email: "dana@example.com", OrganizationID: organization.ID})
	require.NoError(t, err)

	svc := NewDonationService(donations, donors, organizations, stripeClient, log)

	// 19.99 has no exact float64 representation; a truncating conversion
	// would send 1998 cents and undercharge by a cent
	donation, clientSecret, err := svc.CreateDonation(ctx, domain.DonationRequest{
		DonorID:        donor.ID.String(),
		OrganizationID: organization.ID.String(),
		Amount:         19.99,
		Currency:       "usd",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_fake_1_secret", clientSecret)
	assert.Equal(t, domain.DonationStatusPending, donation.PayStatus)
	assert.Equal(t, "pi_fake_1", donation.StripePaymentIntentID)
	// Stripe gets minor units, local records keep major units
	assert.Equal(t, int64(1999), stripeClient.lastAmountMinor)
	assert.Equal(t, 19.99, donation.Amount)

	stored, err := donations.GetByPaymentIntentID(ctx, "pi_fake_1")
	require.NoError(t, err)
	assert.Equal(t, donation.ID, stored.ID)
	assert.NotEmpty(t, stored.TrxDetails)
}

func TestCreateDonation_UnknownDonorRejected(t *testing.T) {
	log := logger.New(logger.ERROR)
	ctx := context.Background()

	donations := repository.NewInMemoryDonationRepository(log)
	donors := repository.NewInMemoryDonorRepository(log)
	organizations := repository.NewInMemoryOrganizationRepository(log)

	svc := NewDonationService(donations, donors, organizations, &fakeStripeClient{}, log)

	_, _, err := svc.CreateDonation(ctx, domain.DonationRequest{
		DonorID:        uuid.NewString(),
		OrganizationID: uuid.NewString(),
		Amount:         25,
		Currency:       "usd",
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
