package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/IBM/sarama"
)

const (
	TopicDonationCompleted    = "donation.completed"
	TopicDonationFailed       = "donation.failed"
	TopicSubscriptionCreated  = "subscription.created"
	TopicSubscriptionCanceled = "subscription.canceled"
)

// DonationEvent представляет событие пожертвования для Kafka
type DonationEvent struct {
	Kind           string    `json:"kind"` // one_time или recurring
	DonorID        string    `json:"donor_id,omitempty"`
	OrganizationID string    `json:"organization_id"`
	ExternalID     string    `json:"external_id"` // Stripe PaymentIntent, Invoice или Subscription ID
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Timestamp      time.Time `json:"timestamp"`
}

// EventProducer интерфейс для отправки доменных событий пожертвований
type EventProducer interface {
	PublishDonationCompleted(ctx context.Context, event DonationEvent) error
	PublishDonationFailed(ctx context.Context, event DonationEvent) error
	PublishSubscriptionCreated(ctx context.Context, event DonationEvent) error
	PublishSubscriptionCanceled(ctx context.Context, event DonationEvent) error
	Close() error
}

type kafkaDonationProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaDonationProducer создает новый продюсер событий пожертвований
func NewKafkaDonationProducer(brokers []string, log *logger.Logger) (EventProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &kafkaDonationProducer{
		producer: producer,
		log:      log,
	}, nil
}

// PublishDonationCompleted публикует событие об успешном пожертвовании
func (p *kafkaDonationProducer) PublishDonationCompleted(ctx context.Context, event DonationEvent) error {
	return p.publishEvent(ctx, TopicDonationCompleted, event)
}

// PublishDonationFailed публикует событие о неудачном пожертвовании
func (p *kafkaDonationProducer) PublishDonationFailed(ctx context.Context, event DonationEvent) error {
	return p.publishEvent(ctx, TopicDonationFailed, event)
}

// PublishSubscriptionCreated публикует событие о создании подписки
func (p *kafkaDonationProducer) PublishSubscriptionCreated(ctx context.Context, event DonationEvent) error {
	return p.publishEvent(ctx, TopicSubscriptionCreated, event)
}

// PublishSubscriptionCanceled публикует событие об отмене подписки
func (p *kafkaDonationProducer) PublishSubscriptionCanceled(ctx context.Context, event DonationEvent) error {
	return p.publishEvent(ctx, TopicSubscriptionCanceled, event)
}

// publishEvent публикует событие пожертвования в Kafka
func (p *kafkaDonationProducer) publishEvent(ctx context.Context, topic string, event DonationEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal donation event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		// Ключ — ID организации: события одной организации попадают в одну партицию
		Key:   sarama.StringEncoder(event.OrganizationID),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish donation event: %w", err)
	}

	p.log.Debugw("Published donation event", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

// Close закрывает продюсер
func (p *kafkaDonationProducer) Close() error {
	return p.producer.Close()
}
