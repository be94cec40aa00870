package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/integration/stripe"
	"github.com/Dhoini/Donation-platform/internal/kafka/producer"
	"github.com/Dhoini/Donation-platform/internal/metrics"
	"github.com/Dhoini/Donation-platform/internal/notifications"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v78"
)

// EmailSender интерфейс отправки писем жертвователям.
// Реализация — internal/notifications; в обработчике вебхука все вызовы
// строго best-effort: ошибка отправки никогда не влияет на финансовые записи.
type EmailSender interface {
	SendMonthlyImpactEmail(ctx context.Context, p notifications.MonthlyImpactEmail) error
	SendCardFailureAlertEmail(ctx context.Context, p notifications.CardFailureAlertEmail) error
}

// WebhookService обрабатывает верифицированные события Stripe и согласует
// локальное состояние (подписки, транзакции, баланс организаций) с состоянием
// Stripe. Доставка событий — at-least-once и возможно не по порядку, поэтому
// все записи ключуются по внешним Stripe ID.
type WebhookService interface {
	// ProcessEvent обрабатывает одно событие. Ошибки конкретных обработчиков
	// логируются и не возвращаются: после верификации подписи и диспетчеризации
	// ответ Stripe всегда 200, иначе ретраи Stripe будут бесконечно повторять
	// ошибку, которую система не может исправить сама.
	ProcessEvent(ctx context.Context, eventType stripego.EventType, eventID string, data map[string]interface{})
}

type webhookService struct {
	subscriptions repository.SubscriptionRepository
	transactions  repository.TransactionRepository
	organizations repository.OrganizationRepository
	donations     repository.DonationRepository
	packages      repository.PackageRepository
	donors        repository.DonorRepository
	email         EmailSender
	producer      producer.EventProducer // может быть nil, если Kafka недоступна
	metrics       metrics.WebhookMetrics
	baseURL       string
	log           *logger.Logger
}

// NewWebhookService создает новый сервис обработки вебхуков Stripe.
func NewWebhookService(
	subscriptions repository.SubscriptionRepository,
	transactions repository.TransactionRepository,
	organizations repository.OrganizationRepository,
	donations repository.DonationRepository,
	packages repository.PackageRepository,
	donors repository.DonorRepository,
	email EmailSender,
	eventProducer producer.EventProducer,
	webhookMetrics metrics.WebhookMetrics,
	baseURL string,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		subscriptions: subscriptions,
		transactions:  transactions,
		organizations: organizations,
		donations:     donations,
		packages:      packages,
		donors:        donors,
		email:         email,
		producer:      eventProducer,
		metrics:       webhookMetrics,
		baseURL:       baseURL,
		log:           log,
	}
}

// ProcessEvent диспетчеризует событие ровно в один обработчик по типу.
func (s *webhookService) ProcessEvent(ctx context.Context, eventType stripego.EventType, eventID string, data map[string]interface{}) {
	s.log.Infow("Handling Stripe webhook event", "eventID", eventID, "eventType", eventType)

	var err error
	switch eventType {
	case "customer.subscription.created":
		err = s.handleSubscriptionCreated(ctx, data)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, data)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, data)
	case "invoice.payment_succeeded":
		err = s.handleInvoiceEvent(ctx, data, domain.TransactionStatusPaid)
	case "invoice.payment_failed":
		err = s.handleInvoiceEvent(ctx, data, domain.TransactionStatusFailed)
	case "invoice.created":
		err = s.handleInvoiceEvent(ctx, data, domain.TransactionStatusOpen)
	case "payment_intent.succeeded":
		err = s.handlePaymentIntentSucceeded(ctx, data)
	case "payment_intent.payment_failed":
		err = s.handlePaymentIntentStatus(ctx, data, domain.DonationStatusFailed)
	case "payment_intent.canceled":
		err = s.handlePaymentIntentStatus(ctx, data, domain.DonationStatusCancelled)
	case "payment_intent.processing":
		err = s.handlePaymentIntentStatus(ctx, data, domain.DonationStatusProcessing)
	default:
		// Неизвестный тип подтверждаем без обработки: ретрай Stripe
		// не изменит исход для события, которое мы не понимаем.
		s.log.Infow("Ignored webhook event type", "eventID", eventID, "eventType", eventType)
		s.metrics.IncEventProcessed(string(eventType), "ignored")
		return
	}

	if err != nil {
		s.log.Errorw("Failed to process webhook event", "eventID", eventID, "eventType", eventType, "error", err)
		s.metrics.IncEventProcessed(string(eventType), "error")
		return
	}
	s.metrics.IncEventProcessed(string(eventType), "ok")
}

// handleSubscriptionCreated создает локальное зеркало подписки.
// Подписка без существующего локального пакета хуже отсутствующей,
// поэтому при неизвестном package_id запись не создается вовсе.
func (s *webhookService) handleSubscriptionCreated(ctx context.Context, data map[string]interface{}) error {
	stripeSubscriptionID := getStringValue(data, "id")
	if stripeSubscriptionID == "" {
		s.log.Errorw("Subscription ID missing in customer.subscription.created event")
		return nil
	}

	metadata := getMapValue(data, "metadata")
	packageID, err := extractUUIDFromMetadata(metadata, stripe.MetadataPackageIDKey)
	if err != nil {
		s.log.Warnw("Subscription created without usable package_id metadata, skipping", "stripeSubscriptionID", stripeSubscriptionID, "error", err)
		return nil
	}

	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("Subscription references unknown package, skipping", "stripeSubscriptionID", stripeSubscriptionID, "packageID", packageID)
			return nil
		}
		return fmt.Errorf("failed to look up package: %w", err)
	}

	donorID, err := extractUUIDFromMetadata(metadata, stripe.MetadataDonorIDKey)
	if err != nil {
		s.log.Warnw("Subscription created without usable donor_id metadata, skipping", "stripeSubscriptionID", stripeSubscriptionID, "error", err)
		return nil
	}
	organizationID, err := extractUUIDFromMetadata(metadata, stripe.MetadataOrganizationIDKey)
	if err != nil {
		s.log.Warnw("Subscription created without usable organization_id metadata, skipping", "stripeSubscriptionID", stripeSubscriptionID, "error", err)
		return nil
	}

	amount, currency, interval := extractPlanDetails(data)
	if amount == 0 {
		amount = pkg.Amount
	}
	if currency == "" {
		currency = pkg.Currency
	}
	if interval == "" {
		interval = pkg.Interval
	}

	subscription := domain.Subscription{
		StripeSubscriptionID: stripeSubscriptionID,
		DonorID:              donorID,
		OrganizationID:       organizationID,
		PackageID:            packageID,
		Status:               domain.SubscriptionStatusFromStripe(getStringValue(data, "status")),
		CurrentPeriodStart:   getTimeValueFromUnix(data, "current_period_start"),
		CurrentPeriodEnd:     getTimeValueFromUnix(data, "current_period_end"),
		CancelAtPeriodEnd:    getBoolValue(data, "cancel_at_period_end"),
		CanceledAt:           getOptionalTimeFromUnix(data, "canceled_at"),
		TrialStart:           getOptionalTimeFromUnix(data, "trial_start"),
		TrialEnd:             getOptionalTimeFromUnix(data, "trial_end"),
		Amount:               amount,
		Currency:             currency,
		Interval:             interval,
	}

	saved, err := s.subscriptions.Upsert(ctx, subscription)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	s.log.Infow("Subscription reconciled", "stripeSubscriptionID", stripeSubscriptionID, "status", saved.Status)

	s.publishEvent(ctx, producer.TopicSubscriptionCreated, producer.DonationEvent{
		Kind:           "recurring",
		DonorID:        saved.DonorID.String(),
		OrganizationID: saved.OrganizationID.String(),
		ExternalID:     saved.StripeSubscriptionID,
		Amount:         saved.Amount,
		Currency:       saved.Currency,
	})
	return nil
}

// handleSubscriptionUpdated зеркалирует обновление подписки Stripe.
// Отсутствие локальной строки — тихий no-op (семантика updateMany).
func (s *webhookService) handleSubscriptionUpdated(ctx context.Context, data map[string]interface{}) error {
	stripeSubscriptionID := getStringValue(data, "id")
	if stripeSubscriptionID == "" {
		s.log.Errorw("Subscription ID missing in customer.subscription.updated event")
		return nil
	}

	update := domain.SubscriptionUpdate{
		Status:             domain.SubscriptionStatusFromStripe(getStringValue(data, "status")),
		CurrentPeriodStart: getTimeValueFromUnix(data, "current_period_start"),
		CurrentPeriodEnd:   getTimeValueFromUnix(data, "current_period_end"),
		CancelAtPeriodEnd:  getBoolValue(data, "cancel_at_period_end"),
		CanceledAt:         getOptionalTimeFromUnix(data, "canceled_at"),
		TrialStart:         getOptionalTimeFromUnix(data, "trial_start"),
		TrialEnd:           getOptionalTimeFromUnix(data, "trial_end"),
	}

	if err := s.subscriptions.UpdateByStripeID(ctx, stripeSubscriptionID, update); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// handleSubscriptionDeleted принудительно переводит подписку в CANCELED.
func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, data map[string]interface{}) error {
	stripeSubscriptionID := getStringValue(data, "id")
	if stripeSubscriptionID == "" {
		s.log.Errorw("Subscription ID missing in customer.subscription.deleted event")
		return nil
	}

	canceledAt := getTimeValueFromUnix(data, "canceled_at")
	if canceledAt.IsZero() {
		canceledAt = time.Now().UTC()
	}

	if err := s.subscriptions.MarkCanceledByStripeID(ctx, stripeSubscriptionID, canceledAt); err != nil {
		return fmt.Errorf("failed to mark subscription canceled: %w", err)
	}

	if subscription, err := s.subscriptions.GetByStripeID(ctx, stripeSubscriptionID); err == nil {
		s.publishEvent(ctx, producer.TopicSubscriptionCanceled, producer.DonationEvent{
			Kind:           "recurring",
			DonorID:        subscription.DonorID.String(),
			OrganizationID: subscription.OrganizationID.String(),
			ExternalID:     stripeSubscriptionID,
			Amount:         subscription.Amount,
			Currency:       subscription.Currency,
		})
	}
	return nil
}

// handleInvoiceEvent записывает транзакцию биллингового цикла и, для
// успешной оплаты, увеличивает баланс организации. Инвойс без ссылки на
// подписку (разовый инвойс) пропускается целиком.
func (s *webhookService) handleInvoiceEvent(ctx context.Context, data map[string]interface{}, status domain.TransactionStatus) error {
	stripeInvoiceID := getStringValue(data, "id")
	stripeSubscriptionID := getStringValue(data, "subscription")
	if stripeSubscriptionID == "" {
		s.log.Infow("Invoice without subscription reference, skipping", "stripeInvoiceID", stripeInvoiceID)
		return nil
	}

	subscription, err := s.subscriptions.GetByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Без локальной подписки строка-сирота бесполезна: пропускаем
			s.log.Warnw("Invoice references unknown local subscription, skipping", "stripeInvoiceID", stripeInvoiceID, "stripeSubscriptionID", stripeSubscriptionID)
			return nil
		}
		return fmt.Errorf("failed to look up subscription: %w", err)
	}

	// Оплаченные инвойсы несут сумму в amount_paid, остальные — в amount_due.
	// Stripe присылает суммы в минимальных единицах валюты.
	var amount float64
	if status == domain.TransactionStatusPaid {
		amount = float64(getInt64Value(data, "amount_paid")) / 100
	} else {
		amount = float64(getInt64Value(data, "amount_due")) / 100
	}

	transaction := domain.SubscriptionTransaction{
		SubscriptionID:  subscription.ID,
		StripeInvoiceID: stripeInvoiceID,
		Amount:          amount,
		Currency:        getStringValue(data, "currency"),
		Status:          status,
		InvoiceURL:      getStringValue(data, "hosted_invoice_url"),
		InvoicePDF:      getStringValue(data, "invoice_pdf"),
		PeriodStart:     getTimeValueFromUnix(data, "period_start"),
		PeriodEnd:       getTimeValueFromUnix(data, "period_end"),
	}

	if _, err := s.transactions.Upsert(ctx, transaction); err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}

	switch status {
	case domain.TransactionStatusPaid:
		// Единственный путь увеличения баланса для подписок. Инкремент
		// безусловный: повторная доставка того же события засчитает сумму
		// еще раз (известное ограничение at-least-once модели доставки).
		if err := s.organizations.IncrementBalance(ctx, subscription.OrganizationID, amount); err != nil {
			return fmt.Errorf("failed to increment organization balance: %w", err)
		}
		s.metrics.ObserveDonationAmount(amount, transaction.Currency, "recurring")

		s.publishEvent(ctx, producer.TopicDonationCompleted, producer.DonationEvent{
			Kind:           "recurring",
			DonorID:        subscription.DonorID.String(),
			OrganizationID: subscription.OrganizationID.String(),
			ExternalID:     stripeInvoiceID,
			Amount:         amount,
			Currency:       transaction.Currency,
		})
		s.sendMonthlyImpact(ctx, subscription.DonorID, subscription.OrganizationID, amount, transaction.Currency)

	case domain.TransactionStatusFailed:
		s.publishEvent(ctx, producer.TopicDonationFailed, producer.DonationEvent{
			Kind:           "recurring",
			DonorID:        subscription.DonorID.String(),
			OrganizationID: subscription.OrganizationID.String(),
			ExternalID:     stripeInvoiceID,
			Amount:         amount,
			Currency:       transaction.Currency,
		})
		s.sendCardFailureAlert(ctx, subscription.DonorID, subscription.OrganizationID)
	}
	return nil
}

// handlePaymentIntentSucceeded фиксирует успешное разовое пожертвование.
// Метаданные donor_id/organization_id обязательны: интент без них создан
// не нашим эндпоинтом (например, первым инвойсом подписки), и засчитывать
// его здесь означало бы удвоить сумму.
func (s *webhookService) handlePaymentIntentSucceeded(ctx context.Context, data map[string]interface{}) error {
	paymentIntentID := getStringValue(data, "id")
	metadata := getMapValue(data, "metadata")

	donorID, err := extractUUIDFromMetadata(metadata, stripe.MetadataDonorIDKey)
	if err != nil {
		s.log.Warnw("PaymentIntent without donor metadata, skipping", "paymentIntentID", paymentIntentID, "error", err)
		return nil
	}
	organizationID, err := extractUUIDFromMetadata(metadata, stripe.MetadataOrganizationIDKey)
	if err != nil {
		s.log.Warnw("PaymentIntent without organization metadata, skipping", "paymentIntentID", paymentIntentID, "error", err)
		return nil
	}

	amount := float64(getInt64Value(data, "amount_received")) / 100
	currency := getStringValue(data, "currency")

	if err := s.donations.UpdateStatusByPaymentIntentID(ctx, paymentIntentID, domain.DonationStatusCompleted); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("No donation record for payment intent", "paymentIntentID", paymentIntentID)
		} else {
			return fmt.Errorf("failed to update donation status: %w", err)
		}
	}

	if err := s.organizations.IncrementBalance(ctx, organizationID, amount); err != nil {
		return fmt.Errorf("failed to increment organization balance: %w", err)
	}
	s.metrics.ObserveDonationAmount(amount, currency, "one_time")

	s.publishEvent(ctx, producer.TopicDonationCompleted, producer.DonationEvent{
		Kind:           "one_time",
		DonorID:        donorID.String(),
		OrganizationID: organizationID.String(),
		ExternalID:     paymentIntentID,
		Amount:         amount,
		Currency:       currency,
	})
	s.sendMonthlyImpact(ctx, donorID, organizationID, amount, currency)
	return nil
}

// handlePaymentIntentStatus обновляет статус разового пожертвования
// без изменения баланса.
func (s *webhookService) handlePaymentIntentStatus(ctx context.Context, data map[string]interface{}, status domain.DonationStatus) error {
	paymentIntentID := getStringValue(data, "id")
	if paymentIntentID == "" {
		s.log.Errorw("PaymentIntent ID missing in event data")
		return nil
	}

	if err := s.donations.UpdateStatusByPaymentIntentID(ctx, paymentIntentID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("No donation record for payment intent", "paymentIntentID", paymentIntentID, "status", status)
			return nil
		}
		return fmt.Errorf("failed to update donation status: %w", err)
	}

	if status == domain.DonationStatusFailed {
		metadata := getMapValue(data, "metadata")
		donorID, donorErr := extractUUIDFromMetadata(metadata, stripe.MetadataDonorIDKey)
		organizationID, orgErr := extractUUIDFromMetadata(metadata, stripe.MetadataOrganizationIDKey)
		if donorErr == nil && orgErr == nil {
			s.sendCardFailureAlert(ctx, donorID, organizationID)
		}
	}
	return nil
}

// sendMonthlyImpact отправляет письмо о вкладе жертвователя. Строго
// best-effort: сбой отправки логируется и не влияет на финансовые записи.
func (s *webhookService) sendMonthlyImpact(ctx context.Context, donorID, organizationID uuid.UUID, amount float64, currency string) {
	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		s.log.Warnw("Skipping impact email, donor not found", "donorID", donorID, "error", err)
		return
	}
	organization, err := s.organizations.GetByID(ctx, organizationID)
	if err != nil {
		s.log.Warnw("Skipping impact email, organization not found", "organizationID", organizationID, "error", err)
		return
	}

	err = s.email.SendMonthlyImpactEmail(ctx, notifications.MonthlyImpactEmail{
		Donor:         donor,
		Organization:  organization,
		DashboardLink: s.baseURL + "/dashboard",
		Month:         time.Now().UTC().Format("January 2006"),
		TotalAmount:   amount,
		Currency:      currency,
	})
	if err != nil {
		s.log.Warnw("Failed to send monthly impact email", "donorID", donorID, "error", err)
	}
}

// sendCardFailureAlert отправляет предупреждение о неудачном списании. Best-effort.
func (s *webhookService) sendCardFailureAlert(ctx context.Context, donorID, organizationID uuid.UUID) {
	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		s.log.Warnw("Skipping card failure email, donor not found", "donorID", donorID, "error", err)
		return
	}
	organization, err := s.organizations.GetByID(ctx, organizationID)
	if err != nil {
		s.log.Warnw("Skipping card failure email, organization not found", "organizationID", organizationID, "error", err)
		return
	}

	err = s.email.SendCardFailureAlertEmail(ctx, notifications.CardFailureAlertEmail{
		Donor:         donor,
		Organization:  organization,
		DashboardLink: s.baseURL + "/dashboard",
	})
	if err != nil {
		s.log.Warnw("Failed to send card failure email", "donorID", donorID, "error", err)
	}
}

// publishEvent публикует доменное событие в Kafka. Best-effort.
func (s *webhookService) publishEvent(ctx context.Context, topic string, event producer.DonationEvent) {
	if s.producer == nil {
		return
	}

	var err error
	switch topic {
	case producer.TopicDonationCompleted:
		err = s.producer.PublishDonationCompleted(ctx, event)
	case producer.TopicDonationFailed:
		err = s.producer.PublishDonationFailed(ctx, event)
	case producer.TopicSubscriptionCreated:
		err = s.producer.PublishSubscriptionCreated(ctx, event)
	case producer.TopicSubscriptionCanceled:
		err = s.producer.PublishSubscriptionCanceled(ctx, event)
	}
	if err != nil {
		s.log.Warnw("Failed to publish donation event", "topic", topic, "error", err)
	}
}

// extractUUIDFromMetadata извлекает UUID из метаданных события Stripe.
func extractUUIDFromMetadata(metadata map[string]interface{}, key string) (uuid.UUID, error) {
	if metadata == nil {
		return uuid.Nil, fmt.Errorf("metadata is nil")
	}

	valueInterface, ok := metadata[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("key %s not found in metadata", key)
	}

	valueStr, ok := valueInterface.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("value for key %s is not a string", key)
	}

	id, err := uuid.Parse(valueStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse UUID: %w", err)
	}

	return id, nil
}

// extractPlanDetails извлекает сумму, валюту и интервал из первой позиции
// подписки (items.data[0].price), с фолбэком на устаревшее поле plan.
func extractPlanDetails(data map[string]interface{}) (amount float64, currency, interval string) {
	items := getMapValue(data, "items")
	if items != nil {
		if list, ok := items["data"].([]interface{}); ok && len(list) > 0 {
			if item, ok := list[0].(map[string]interface{}); ok {
				price := getMapValue(item, "price")
				if price != nil {
					amount = float64(getInt64Value(price, "unit_amount")) / 100
					currency = getStringValue(price, "currency")
					recurring := getMapValue(price, "recurring")
					if recurring != nil {
						interval = getStringValue(recurring, "interval")
					}
					return amount, currency, interval
				}
			}
		}
	}

	plan := getMapValue(data, "plan")
	if plan != nil {
		amount = float64(getInt64Value(plan, "amount")) / 100
		currency = getStringValue(plan, "currency")
		interval = getStringValue(plan, "interval")
	}
	return amount, currency, interval
}

func getStringValue(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

func getBoolValue(data map[string]interface{}, key string) bool {
	if val, ok := data[key].(bool); ok {
		return val
	}
	return false
}

func getMapValue(data map[string]interface{}, key string) map[string]interface{} {
	if val, ok := data[key].(map[string]interface{}); ok {
		return val
	}
	return nil
}

// getInt64Value безопасно извлекает int64 значение из map[string]interface{}.
// Stripe часто возвращает числа как float64, даже если они целые.
func getInt64Value(data map[string]interface{}, key string) int64 {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		case int:
			return int64(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return i
			}
		}
	}
	return 0
}

// getTimeValueFromUnix безопасно извлекает время из Unix timestamp.
func getTimeValueFromUnix(data map[string]interface{}, key string) time.Time {
	unixTimestamp := getInt64Value(data, key)
	if unixTimestamp > 0 {
		return time.Unix(unixTimestamp, 0).UTC()
	}
	return time.Time{}
}

// getOptionalTimeFromUnix возвращает nil для отсутствующего или нулевого timestamp.
func getOptionalTimeFromUnix(data map[string]interface{}, key string) *time.Time {
	t := getTimeValueFromUnix(data, key)
	if t.IsZero() {
		return nil
	}
	return &t
}
