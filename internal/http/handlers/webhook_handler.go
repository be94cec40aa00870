package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Dhoini/Donation-platform/config"
	"github.com/Dhoini/Donation-platform/internal/service"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/Dhoini/Donation-platform/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78/webhook"
)

const (
	// Ограничение на размер тела запроса вебхука (Stripe рекомендует ~65kb)
	maxRequestBodySize = int64(65536)
)

// WebhookHandler обрабатывает входящие вебхуки от Stripe.
type WebhookHandler struct {
	service service.WebhookService
	cfg     *config.Config
	log     *logger.Logger
}

// NewWebhookHandler создает новый экземпляр WebhookHandler.
func NewWebhookHandler(cfg *config.Config, svc service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		cfg:     cfg,
		log:     log,
	}
}

// HandleStripeWebhook - обработчик для Gin, принимающий вебхуки Stripe.
//
// Контракт ответов:
//   - 503 - секрет вебхука или ключ Stripe не сконфигурированы
//   - 400 - не читается тело / нет подписи / подпись не верифицирована
//   - 500 - событие верифицировано, но данные объекта не парсятся
//   - 200 {"received": true} - во всех остальных случаях, включая ошибки
//     обработки после диспетчеризации (ретраи Stripe их не исправят)
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	// Проверка конфигурации на каждом запросе: сервис мог подняться без
	// секрета, и тогда принимать вебхуки нельзя - пусть Stripe ретраит.
	if h.cfg.Stripe.WebhookSecret == "" || h.cfg.Stripe.SecretKey == "" {
		h.log.Errorw("Stripe is not configured, rejecting webhook")
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Stripe webhook is not configured"}, http.StatusServiceUnavailable)
		c.Abort()
		return
	}

	// Читаем тело ОДИН РАЗ, так как чтение его "потребляет".
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
	payload, err := io.ReadAll(c.Request.Body)
	defer c.Request.Body.Close()

	if err != nil {
		h.log.Errorw("Failed to read webhook request body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Cannot read request body"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		h.log.Warnw("Missing Stripe-Signature header")
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Missing Stripe-Signature header"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	// Верификация подписи и парсинг события. До этой точки никакие записи
	// не происходят: неверифицированный запрос не касается базы.
	event, err := webhook.ConstructEvent(payload, sigHeader, h.cfg.Stripe.WebhookSecret)
	if err != nil {
		h.log.Errorw("Webhook signature verification failed", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Webhook signature verification failed"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	h.log.Infow("Received verified Stripe event", "eventID", event.ID, "eventType", event.Type)

	var rawData map[string]interface{}
	if err := json.Unmarshal(event.Data.Raw, &rawData); err != nil {
		h.log.Errorw("Failed to unmarshal event.Data.Raw", "error", err, "eventID", event.ID, "eventType", event.Type)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to parse event data"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	// После диспетчеризации ответ всегда 200: ошибки обработчиков логируются
	// внутри сервиса и не транслируются в статус ответа.
	h.service.ProcessEvent(ctx, event.Type, event.ID, rawData)

	c.JSON(http.StatusOK, gin.H{"received": true})
}
