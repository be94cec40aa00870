package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/metrics"
	"github.com/Dhoini/Donation-platform/internal/notifications"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
)

// fakeEmailSender records outgoing emails and can be told to fail.
type fakeEmailSender struct {
	impactEmails []notifications.MonthlyImpactEmail
	failureAlert []notifications.CardFailureAlertEmail
	err          error
}

func (f *fakeEmailSender) SendMonthlyImpactEmail(ctx context.Context, p notifications.MonthlyImpactEmail) error {
	if f.err != nil {
		return f.err
	}
	f.impactEmails = append(f.impactEmails, p)
	return nil
}

func (f *fakeEmailSender) SendCardFailureAlertEmail(ctx context.Context, p notifications.CardFailureAlertEmail) error {
	if f.err != nil {
		return f.err
	}
	f.failureAlert = append(f.failureAlert, p)
	return nil
}

type webhookFixture struct {
	service       WebhookService
	subscriptions *repository.InMemorySubscriptionRepository
	transactions  *repository.InMemoryTransactionRepository
	organizations *repository.InMemoryOrganizationRepository
	donations     *repository.InMemoryDonationRepository
	packages      *repository.InMemoryPackageRepository
	donors        *repository.InMemoryDonorRepository
	email         *fakeEmailSender

	organization domain.Organization
	donor        domain.Donor
	pkg          domain.Package
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	log := logger.New(logger.ERROR)

	f := &webhookFixture{
		subscriptions: repository.NewInMemorySubscriptionRepository(log),
		transactions:  repository.NewInMemoryTransactionRepository(log),
		organizations: repository.NewInMemoryOrganizationRepository(log),
		donations:     repository.NewInMemoryDonationRepository(log),
		packages:      repository.NewInMemoryPackageRepository(log),
		donors:        repository.NewInMemoryDonorRepository(log),
		email:         &fakeEmailSender{},
	}

	ctx := context.Background()

	organization, err := f.organizations.Create(ctx, domain.Organization{
		Name:  "Clean Water Fund",
		Email: "contact@cleanwater.example",
	})
	require.NoError(t, err)
	f.organization = organization

	donor, err := f.donors.Create(ctx, domain.Donor{
		Name:           "Alex Donor",
		Email:          "alex@example.com",
		OrganizationID: organization.ID,
	})
	require.NoError(t, err)
	f.donor = donor

	pkg, err := f.packages.Create(ctx, domain.Package{
		Name:     "Monthly Supporter",
		Amount:   50,
		Currency: "usd",
		Interval: "month",
	})
	require.NoError(t, err)
	f.pkg = pkg

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.NewRegistry(), log)
	f.service = NewWebhookService(
		f.subscriptions, f.transactions, f.organizations, f.donations,
		f.packages, f.donors, f.email, nil, webhookMetrics,
		"https://donate.example", log,
	)
	return f
}

func (f *webhookFixture) subscriptionEvent(stripeSubID, status string) map[string]interface{} {
	return map[string]interface{}{
		"id":     stripeSubID,
		"object": "subscription",
		"status": status,
		"metadata": map[string]interface{}{
			"donor_id":        f.donor.ID.String(),
			"organization_id": f.organization.ID.String(),
			"package_id":      f.pkg.ID.String(),
		},
		"current_period_start": float64(1700000000),
		"current_period_end":   float64(1702592000),
		"cancel_at_period_end": false,
		"items": map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{
					"price": map[string]interface{}{
						"unit_amount": float64(5000),
						"currency":    "usd",
						"recurring": map[string]interface{}{
							"interval": "month",
						},
					},
				},
			},
		},
	}
}

func (f *webhookFixture) paymentIntentEvent(intentID string, amountReceived int64) map[string]interface{} {
	return map[string]interface{}{
		"id":              intentID,
		"object":          "payment_intent",
		"amount_received": float64(amountReceived),
		"currency":        "usd",
		"metadata": map[string]interface{}{
			"donor_id":        f.donor.ID.String(),
			"organization_id": f.organization.ID.String(),
		},
	}
}

func invoiceEvent(stripeInvoiceID, stripeSubID string, amountPaid, amountDue int64) map[string]interface{} {
	return map[string]interface{}{
		"id":                 stripeInvoiceID,
		"object":             "invoice",
		"subscription":       stripeSubID,
		"amount_paid":        float64(amountPaid),
		"amount_due":         float64(amountDue),
		"currency":           "usd",
		"hosted_invoice_url": "https://invoice.stripe.com/i/test",
		"invoice_pdf":        "https://invoice.stripe.com/i/test/pdf",
		"period_start":       float64(1700000000),
		"period_end":         float64(1702592000),
	}
}

func TestSubscriptionCreated_CreatesLocalMirror(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, f.donor.ID, sub.DonorID)
	assert.Equal(t, f.organization.ID, sub.OrganizationID)
	assert.Equal(t, f.pkg.ID, sub.PackageID)
	assert.Equal(t, 50.0, sub.Amount)
	assert.Equal(t, "usd", sub.Currency)
	assert.Equal(t, "month", sub.Interval)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), sub.CurrentPeriodStart)
}

func TestSubscriptionCreated_RedeliveryConvergesToOneRow(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "incomplete"))
	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))

	subs, err := f.subscriptions.GetByDonorID(ctx, f.donor.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.SubscriptionStatusActive, subs[0].Status)
}

func TestSubscriptionCreated_UnknownPackageSkipped(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	data := f.subscriptionEvent("sub_456", "active")
	data["metadata"].(map[string]interface{})["package_id"] = uuid.NewString()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", data)

	_, err := f.subscriptions.GetByStripeID(ctx, "sub_456")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriptionCreated_MissingMetadataSkipped(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	data := f.subscriptionEvent("sub_789", "active")
	delete(data, "metadata")

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", data)

	_, err := f.subscriptions.GetByStripeID(ctx, "sub_789")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriptionUpdated_MirrorsStripeStatus(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))

	update := f.subscriptionEvent("sub_123", "past_due")
	update["cancel_at_period_end"] = true
	f.service.ProcessEvent(ctx, "customer.subscription.updated", "evt_2", update)

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPastDue, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
}

func TestSubscriptionUpdated_BeforeCreatedIsSilentNoOp(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	// Out-of-order delivery: updated arrives before created.
	f.service.ProcessEvent(ctx, "customer.subscription.updated", "evt_1", f.subscriptionEvent("sub_999", "active"))

	_, err := f.subscriptions.GetByStripeID(ctx, "sub_999")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The later created event still lands cleanly.
	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_2", f.subscriptionEvent("sub_999", "active"))
	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_999")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
}

func TestSubscriptionDeleted_MarksCanceled(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))

	deleted := f.subscriptionEvent("sub_123", "canceled")
	deleted["canceled_at"] = float64(1702000000)
	f.service.ProcessEvent(ctx, "customer.subscription.deleted", "evt_2", deleted)

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCanceled, sub.Status)
	require.NotNil(t, sub.CanceledAt)
	assert.Equal(t, time.Unix(1702000000, 0).UTC(), *sub.CanceledAt)
}

func TestSubscriptionDeleted_UnknownSubscriptionIsNoOp(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.deleted", "evt_1", f.subscriptionEvent("sub_missing", "canceled"))

	_, err := f.subscriptions.GetByStripeID(ctx, "sub_missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInvoicePaymentSucceeded_RecordsTransactionAndCreditsBalance(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))
	f.service.ProcessEvent(ctx, "invoice.payment_succeeded", "evt_2", invoiceEvent("in_100", "sub_123", 5000, 5000))

	trx, err := f.transactions.GetByInvoiceID(ctx, "in_100")
	require.NoError(t, err)
	// amount_paid is in minor units, local records keep major units
	assert.Equal(t, 50.0, trx.Amount)
	assert.Equal(t, domain.TransactionStatusPaid, trx.Status)
	assert.Equal(t, "https://invoice.stripe.com/i/test", trx.InvoiceURL)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, organization.Balance)

	require.Len(t, f.email.impactEmails, 1)
	assert.Equal(t, f.donor.Email, f.email.impactEmails[0].Donor.Email)
}

func TestInvoicePaymentSucceeded_RedeliveryDoubleCountsBalance(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))
	f.service.ProcessEvent(ctx, "invoice.payment_succeeded", "evt_2", invoiceEvent("in_100", "sub_123", 5000, 5000))
	f.service.ProcessEvent(ctx, "invoice.payment_succeeded", "evt_2", invoiceEvent("in_100", "sub_123", 5000, 5000))

	// The transaction row converges by stripe_invoice_id...
	transactions, err := f.transactions.GetBySubscriptionID(ctx, mustSubscriptionID(t, f, "sub_123"))
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	// ...but the balance increment is unconditional and counts twice.
	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, organization.Balance)
}

func TestInvoicePaymentFailed_RecordsFailedTransactionWithoutBalanceChange(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))
	f.service.ProcessEvent(ctx, "invoice.payment_failed", "evt_2", invoiceEvent("in_200", "sub_123", 0, 5000))

	trx, err := f.transactions.GetByInvoiceID(ctx, "in_200")
	require.NoError(t, err)
	// Failed invoices carry the amount in amount_due
	assert.Equal(t, 50.0, trx.Amount)
	assert.Equal(t, domain.TransactionStatusFailed, trx.Status)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, organization.Balance)

	require.Len(t, f.email.failureAlert, 1)
	assert.Empty(t, f.email.impactEmails)
}

func TestInvoiceWithoutSubscriptionReference_Skipped(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	data := invoiceEvent("in_300", "", 5000, 5000)
	delete(data, "subscription")
	f.service.ProcessEvent(ctx, "invoice.payment_succeeded", "evt_1", data)

	_, err := f.transactions.GetByInvoiceID(ctx, "in_300")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, organization.Balance)
}

func TestInvoiceForUnknownSubscription_Skipped(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "invoice.payment_succeeded", "evt_1", invoiceEvent("in_400", "sub_unknown", 5000, 5000))

	_, err := f.transactions.GetByInvoiceID(ctx, "in_400")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInvoiceCreated_RecordsOpenTransaction(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))
	f.service.ProcessEvent(ctx, "invoice.created", "evt_2", invoiceEvent("in_500", "sub_123", 0, 5000))

	trx, err := f.transactions.GetByInvoiceID(ctx, "in_500")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusOpen, trx.Status)
	assert.Equal(t, 50.0, trx.Amount)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, organization.Balance)
}

func TestEmailFailureDoesNotAffectFinancialRecords(t *testing.T) {
	f := newWebhookFixture(t)
	f.email.err = errors.New("sendgrid is down")
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "customer.subscription.created", "evt_1", f.subscriptionEvent("sub_123", "active"))
	f.service.ProcessEvent(ctx, "invoice.payment_succeeded", "evt_2", invoiceEvent("in_100", "sub_123", 5000, 5000))

	trx, err := f.transactions.GetByInvoiceID(ctx, "in_100")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPaid, trx.Status)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, organization.Balance)
}

func TestPaymentIntentSucceeded_CompletesDonationAndCreditsBalance(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.donations.Create(ctx, domain.Donation{
		DonorID:               f.donor.ID,
		OrganizationID:        f.organization.ID,
		StripePaymentIntentID: "pi_100",
		Amount:                25,
		Currency:              "usd",
		PayStatus:             domain.DonationStatusPending,
	})
	require.NoError(t, err)

	f.service.ProcessEvent(ctx, "payment_intent.succeeded", "evt_1", map[string]interface{}{
		"id":              "pi_100",
		"object":          "payment_intent",
		"amount_received": float64(2500),
		"currency":        "usd",
		"metadata": map[string]interface{}{
			"donor_id":        f.donor.ID.String(),
			"organization_id": f.organization.ID.String(),
		},
	})

	donation, err := f.donations.GetByPaymentIntentID(ctx, "pi_100")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusCompleted, donation.PayStatus)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, organization.Balance)

	require.Len(t, f.email.impactEmails, 1)
}

func TestPaymentIntentSucceeded_RedeliveryDoubleCountsBalance(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.donations.Create(ctx, domain.Donation{
		DonorID:               f.donor.ID,
		OrganizationID:        f.organization.ID,
		StripePaymentIntentID: "pi_300",
		Amount:                25,
		Currency:              "usd",
		PayStatus:             domain.DonationStatusPending,
	})
	require.NoError(t, err)

	event := f.paymentIntentEvent("pi_300", 2500)
	f.service.ProcessEvent(ctx, "payment_intent.succeeded", "evt_1", event)
	f.service.ProcessEvent(ctx, "payment_intent.succeeded", "evt_1", event)

	// The donation row converges by stripe_payment_intent_id...
	donation, err := f.donations.GetByPaymentIntentID(ctx, "pi_300")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusCompleted, donation.PayStatus)

	// ...but the balance increment is unconditional and counts twice.
	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, organization.Balance)
}

func TestPaymentIntentSucceeded_DistinctIntentsSumIntoBalance(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	for _, intentID := range []string{"pi_400", "pi_401"} {
		_, err := f.donations.Create(ctx, domain.Donation{
			DonorID:               f.donor.ID,
			OrganizationID:        f.organization.ID,
			StripePaymentIntentID: intentID,
			Amount:                10,
			Currency:              "usd",
			PayStatus:             domain.DonationStatusPending,
		})
		require.NoError(t, err)
	}

	f.service.ProcessEvent(ctx, "payment_intent.succeeded", "evt_1", f.paymentIntentEvent("pi_400", 2500))
	f.service.ProcessEvent(ctx, "payment_intent.succeeded", "evt_2", f.paymentIntentEvent("pi_401", 1000))

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 35.0, organization.Balance)
}

func TestPaymentIntentSucceeded_WithoutMetadataSkipped(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	// A payment intent from a subscription invoice carries no donation
	// metadata; crediting it here would double count the invoice.
	f.service.ProcessEvent(ctx, "payment_intent.succeeded", "evt_1", map[string]interface{}{
		"id":              "pi_foreign",
		"object":          "payment_intent",
		"amount_received": float64(2500),
		"currency":        "usd",
	})

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, organization.Balance)
}

func TestPaymentIntentFailed_MarksDonationFailed(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.donations.Create(ctx, domain.Donation{
		DonorID:               f.donor.ID,
		OrganizationID:        f.organization.ID,
		StripePaymentIntentID: "pi_200",
		Amount:                25,
		Currency:              "usd",
		PayStatus:             domain.DonationStatusPending,
	})
	require.NoError(t, err)

	f.service.ProcessEvent(ctx, "payment_intent.payment_failed", "evt_1", map[string]interface{}{
		"id":     "pi_200",
		"object": "payment_intent",
		"metadata": map[string]interface{}{
			"donor_id":        f.donor.ID.String(),
			"organization_id": f.organization.ID.String(),
		},
	})

	donation, err := f.donations.GetByPaymentIntentID(ctx, "pi_200")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusFailed, donation.PayStatus)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, organization.Balance)

	require.Len(t, f.email.failureAlert, 1)
}

func TestUnknownEventType_Ignored(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	f.service.ProcessEvent(ctx, "charge.refunded", "evt_1", map[string]interface{}{"id": "ch_1"})

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, organization.Balance)
}

func mustSubscriptionID(t *testing.T, f *webhookFixture, stripeSubID string) uuid.UUID {
	t.Helper()
	sub, err := f.subscriptions.GetByStripeID(context.Background(), stripeSubID)
	require.NoError(t, err)
	return sub.ID
}
