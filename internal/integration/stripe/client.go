package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const (
	// Ключи метаданных, связывающие объекты Stripe с локальными сущностями.
	// Обработчик вебхука опирается на эти же ключи.
	MetadataDonorIDKey        = "donor_id"
	MetadataOrganizationIDKey = "organization_id"
	MetadataPackageIDKey      = "package_id"
)

// Client определяет методы для взаимодействия со Stripe API.
type Client interface {
	// GetOrCreateCustomer ищет клиента по donorID в метаданных, если не находит - создает нового.
	GetOrCreateCustomer(ctx context.Context, donorID uuid.UUID, email string) (string, error)

	// CreatePaymentIntent создает PaymentIntent разового пожертвования.
	// Сумма в минимальных единицах валюты. Возвращает ID интента и client secret.
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, donorID, organizationID uuid.UUID, idempotencyKey string) (intentID, clientSecret string, err error)

	// CreateSubscription создает подписку в Stripe для клиента.
	// Возвращает Stripe Subscription ID и Client Secret для первого платежа (если нужен).
	CreateSubscription(ctx context.Context, stripeCustomerID, priceID string, donorID, organizationID, packageID uuid.UUID, idempotencyKey string) (stripeSubscriptionID, clientSecret string, err error)

	// CancelSubscription отменяет подписку в Stripe.
	CancelSubscription(ctx context.Context, stripeSubscriptionID string) error
}

// stripeClient реализует интерфейс Client.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewStripeClient создает новый экземпляр клиента Stripe.
func NewStripeClient(apiKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeClient{
		client: sc,
		log:    log,
	}
}

// GetOrCreateCustomer ищет клиента по donorID в метаданных через Search API,
// если не находит - создает нового.
func (sc *stripeClient) GetOrCreateCustomer(ctx context.Context, donorID uuid.UUID, email string) (string, error) {
	searchQuery := fmt.Sprintf("metadata['%s']:'%s'", MetadataDonorIDKey, donorID)
	searchParams := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   searchQuery,
			Limit:   stripe.Int64(1),
			Context: ctx,
		},
	}

	customers := sc.client.Customers.Search(searchParams)
	if customers.Next() {
		customer := customers.Customer()
		sc.log.Debugw("Found existing Stripe customer", "stripeCustomerID", customer.ID, "donorID", donorID)
		return customer.ID, nil
	}
	if err := customers.Err(); err != nil {
		logStripeError(sc.log, "SearchCustomers", err)
		return "", fmt.Errorf("stripe: failed to search customer: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			MetadataDonorIDKey: donorID.String(),
		},
	}
	params.Context = ctx

	cus, err := sc.client.Customers.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "donorID", donorID)
	return cus.ID, nil
}

// CreatePaymentIntent создает PaymentIntent разового пожертвования.
// Метаданные donor_id/organization_id обязательны: без них обработчик
// вебхука не сможет отнести платеж к жертвователю и организации.
func (sc *stripeClient) CreatePaymentIntent(ctx context.Context, amount int64, currency string, donorID, organizationID uuid.UUID, idempotencyKey string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Params: stripe.Params{
			IdempotencyKey: stripe.String(idempotencyKey),
			Context:        ctx,
			Metadata: map[string]string{
				MetadataDonorIDKey:        donorID.String(),
				MetadataOrganizationIDKey: organizationID.String(),
			},
		},
	}

	intent, err := sc.client.PaymentIntents.New(params)
	if err != nil {
		logStripeError(sc.log, "CreatePaymentIntent", err)
		return "", "", fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	sc.log.Infow("Stripe payment intent created", "paymentIntentID", intent.ID, "amount", amount, "currency", currency)
	return intent.ID, intent.ClientSecret, nil
}

// CreateSubscription создает подписку в Stripe для указанного клиента и прайса.
func (sc *stripeClient) CreateSubscription(ctx context.Context, stripeCustomerID, priceID string, donorID, organizationID, packageID uuid.UUID, idempotencyKey string) (string, string, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(stripeCustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price: stripe.String(priceID),
			},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		Params: stripe.Params{
			IdempotencyKey: stripe.String(idempotencyKey),
			Context:        ctx,
			Metadata: map[string]string{
				MetadataDonorIDKey:        donorID.String(),
				MetadataOrganizationIDKey: organizationID.String(),
				MetadataPackageIDKey:      packageID.String(),
			},
		},
	}
	params.AddExpand("latest_invoice.payment_intent")

	subscription, err := sc.client.Subscriptions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateSubscription", err)
		return "", "", fmt.Errorf("stripe: failed to create subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription created", "stripeSubscriptionID", subscription.ID, "status", string(subscription.Status))

	clientSecret := ""
	if subscription.LatestInvoice != nil && subscription.LatestInvoice.PaymentIntent != nil {
		clientSecret = subscription.LatestInvoice.PaymentIntent.ClientSecret
	} else {
		sc.log.Warnw("No payment intent found in created subscription", "stripeSubscriptionID", subscription.ID)
	}

	return subscription.ID, clientSecret, nil
}

// CancelSubscription отменяет подписку в Stripe немедленно.
func (sc *stripeClient) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{
		Params: stripe.Params{
			Context: ctx,
		},
	}

	_, err := sc.client.Subscriptions.Cancel(stripeSubscriptionID, params)
	if err != nil {
		// Подписка могла быть уже отменена через Stripe Dashboard
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			sc.log.Warnw("Attempted to cancel already canceled/missing Stripe subscription", "stripeSubscriptionID", stripeSubscriptionID)
			return nil
		}
		logStripeError(sc.log, "CancelSubscription", err)
		return fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription canceled", "stripeSubscriptionID", stripeSubscriptionID)
	return nil
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
