package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/pkg/logger"
)

// Publisher publishes payment events to Kafka
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", TopicPaymentEvents).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer, topic: TopicPaymentEvents}
}

// PublishPaymentCreated publishes payment.created
func (p *Publisher) PublishPaymentCreated(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, newPaymentEvent(EventTypePaymentCreated, payment))
}

// PublishPaymentProcessed publishes payment.processed
func (p *Publisher) PublishPaymentProcessed(ctx context.Context, payment *domain.Payment, action domain.Action, previous domain.Status) error {
	event := newPaymentEvent(EventTypePaymentProcessed, payment)
	event.Action = string(action)
	event.PreviousStatus = string(previous)
	return p.publish(ctx, event)
}

func newPaymentEvent(eventType string, payment *domain.Payment) PaymentEvent {
	return PaymentEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		PaymentID:     payment.PaymentID,
		Amount:        payment.AmountString(),
		Currency:      payment.Currency,
		CustomerID:    payment.CustomerID,
		PaymentMethod: payment.PaymentMethod,
		Status:        string(payment.Status),
		Timestamp:     time.Now().UTC(),
	}
}

func (p *Publisher) publish(ctx context.Context, event PaymentEvent) error {
	ctx, span := otel.Tracer("kafka-publisher").Start(ctx, "kafka.publish."+event.EventType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", event.EventType),
			attribute.String("event.id", event.EventID),
			attribute.String("payment.id", event.PaymentID),
		),
	)
	defer span.End()

	eventBytes, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(event.PaymentID),
		Value:   sarama.ByteEncoder(eventBytes),
		Headers: headersFor(ctx, event.EventType, event.EventID),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)

	logger.Debug(ctx).
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("payment_id", event.PaymentID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Payment event published")

	return nil
}

// headersFor carries the event type and the trace context of ctx
func headersFor(ctx context.Context, eventType, eventID string) []sarama.RecordHeader {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(eventType)},
		{Key: []byte(HeaderEventID), Value: []byte(eventID)},
	}
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	return headers
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
