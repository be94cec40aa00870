package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/Donation-platform/config"
	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/metrics"
	"github.com/Dhoini/Donation-platform/internal/notifications"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/internal/service"
	"github.com/Dhoini/Donation-platform/pkg/logger"
)

const testWebhookSecret = "whsec_test_secret"

type noopEmailSender struct{}

func (noopEmailSender) SendMonthlyImpactEmail(ctx context.Context, p notifications.MonthlyImpactEmail) error {
	return nil
}

func (noopEmailSender) SendCardFailureAlertEmail(ctx context.Context, p notifications.CardFailureAlertEmail) error {
	return nil
}

type handlerFixture struct {
	router        *gin.Engine
	subscriptions *repository.InMemorySubscriptionRepository
	transactions  *repository.InMemoryTransactionRepository
	organizations *repository.InMemoryOrganizationRepository

	organization domain.Organization
	donor        domain.Donor
	pkg          domain.Package
}

func newHandlerFixture(t *testing.T, webhookSecret string) *handlerFixture {
	gin.SetMode(gin.TestMode)
	log := logger.New(logger.ERROR)
	ctx := context.Background()

	f := &handlerFixture{
		subscriptions: repository.NewInMemorySubscriptionRepository(log),
		transactions:  repository.NewInMemoryTransactionRepository(log),
		organizations: repository.NewInMemoryOrganizationRepository(log),
	}
	donations := repository.NewInMemoryDonationRepository(log)
	packages := repository.NewInMemoryPackageRepository(log)
	donors := repository.NewInMemoryDonorRepository(log)

	organization, err := f.organizations.Create(ctx, domain.Organization{Name: "Shelter", Email: "shelter@example.com"})
	require.NoError(t, err)
	f.organization = organization

	donor, err := donors.Create(ctx, domain.Donor{Name: "Dana", Email: "dana@example.com", OrganizationID: organization.ID})
	require.NoError(t, err)
	f.donor = donor

	pkg, err := packages.Create(ctx, domain.Package{Name: "Monthly", Amount: 50, Currency: "usd", Interval: "month"})
	require.NoError(t, err)
	f.pkg = pkg

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.NewRegistry(), log)
	webhookService := service.NewWebhookService(
		f.subscriptions, f.transactions, f.organizations, donations,
		packages, donors, noopEmailSender{}, nil, webhookMetrics,
		"https://donate.example", log,
	)

	cfg := &config.Config{}
	cfg.Stripe.SecretKey = "sk_test_123"
	cfg.Stripe.WebhookSecret = webhookSecret

	handler := NewWebhookHandler(cfg, webhookService, log)

	router := gin.New()
	router.POST("/api/payments/webhook", handler.HandleStripeWebhook)
	f.router = router
	return f
}

// signPayload produces a valid Stripe-Signature header for the payload.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d", ts.Unix())))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": stripego.APIVersion,
		"type":        eventType,
		"data": map[string]interface{}{
			"object": object,
		},
	})
	require.NoError(t, err)
	return payload
}

func (f *handlerFixture) post(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_InvalidSignatureRejectedWithoutWrites(t *testing.T) {
	f := newHandlerFixture(t, testWebhookSecret)

	payload := eventPayload(t, "invoice.payment_succeeded", map[string]interface{}{
		"id":           "in_1",
		"subscription": "sub_1",
		"amount_paid":  float64(5000),
		"currency":     "usd",
	})

	rec := f.post(payload, signPayload(payload, "whsec_wrong_secret", time.Now()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was written before verification failed
	_, err := f.transactions.GetByInvoiceID(context.Background(), "in_1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	organization, err := f.organizations.GetByID(context.Background(), f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, organization.Balance)
}

func TestWebhook_MissingSignatureHeaderRejected(t *testing.T) {
	f := newHandlerFixture(t, testWebhookSecret)

	payload := eventPayload(t, "invoice.payment_succeeded", map[string]interface{}{"id": "in_1"})
	rec := f.post(payload, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_MissingSecretReturnsServiceUnavailable(t *testing.T) {
	f := newHandlerFixture(t, "")

	payload := eventPayload(t, "invoice.payment_succeeded", map[string]interface{}{"id": "in_1"})
	rec := f.post(payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebhook_UnknownEventTypeAcknowledged(t *testing.T) {
	f := newHandlerFixture(t, testWebhookSecret)

	payload := eventPayload(t, "charge.refunded", map[string]interface{}{"id": "ch_1"})
	rec := f.post(payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["received"])
}

func TestWebhook_SignedInvoiceEventEndToEnd(t *testing.T) {
	f := newHandlerFixture(t, testWebhookSecret)
	ctx := context.Background()

	// First the subscription mirror has to exist
	subPayload := eventPayload(t, "customer.subscription.created", map[string]interface{}{
		"id":     "sub_e2e",
		"object": "subscription",
		"status": "active",
		"metadata": map[string]interface{}{
			"donor_id":        f.donor.ID.String(),
			"organization_id": f.organization.ID.String(),
			"package_id":      f.pkg.ID.String(),
		},
		"current_period_start": float64(1700000000),
		"current_period_end":   float64(1702592000),
	})
	rec := f.post(subPayload, signPayload(subPayload, testWebhookSecret, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)

	invoicePayload := eventPayload(t, "invoice.payment_succeeded", map[string]interface{}{
		"id":           "in_e2e",
		"object":       "invoice",
		"subscription": "sub_e2e",
		"amount_paid":  float64(5000),
		"amount_due":   float64(5000),
		"currency":     "usd",
		"period_start": float64(1700000000),
		"period_end":   float64(1702592000),
	})
	rec = f.post(invoicePayload, signPayload(invoicePayload, testWebhookSecret, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)

	trx, err := f.transactions.GetByInvoiceID(ctx, "in_e2e")
	require.NoError(t, err)
	assert.Equal(t, 50.0, trx.Amount)
	assert.Equal(t, domain.TransactionStatusPaid, trx.Status)

	organization, err := f.organizations.GetByID(ctx, f.organization.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, organization.Balance)
}

func TestWebhook_ProcessingFailureStillAcknowledged(t *testing.T) {
	f := newHandlerFixture(t, testWebhookSecret)

	// Invoice referencing a subscription we never saw: handled as a skip,
	// acknowledged with 200 so Stripe does not retry forever.
	payload := eventPayload(t, "invoice.payment_succeeded", map[string]interface{}{
		"id":           "in_orphan",
		"object":       "invoice",
		"subscription": "sub_never_seen",
		"amount_paid":  float64(5000),
		"currency":     "usd",
	})
	rec := f.post(payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)
}
