package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/config"
)

const (
	EventOrderCreated         = "order_created"
	EventOrderStatusChanged   = "order_status_changed"
	EventPaymentStatusChanged = "payment_status_changed"
)

type Event struct {
	Type          string          `json:"event_type"`
	OrderID       uuid.UUID       `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func newEvent(eventType string, o *Order) Event {
	return Event{
		Type:          eventType,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher announces order lifecycle events to other systems.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher publishes events keyed by order id so every event of one
// order lands on the same partition.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string) Publisher {
	return &kafkaPublisher{producer: producer, topic: topic}
}

func (p *kafkaPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OrderID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("events: failed to send message: %w", err)
	}

	log.Debug().
		Str("topic", p.topic).
		Str("event_type", ev.Type).
		Stringer("order_id", ev.OrderID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("events: order event published")
	return nil
}

// NewSyncProducer builds the producer used by the Kafka publisher.
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = cfg.MaxRetries

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("events: failed to create Kafka producer: %w", err)
	}
	return producer, nil
}

type noopPublisher struct{}

// NoopPublisher drops every event. Used when no brokers are configured.
func NoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error {
	return nil
}
