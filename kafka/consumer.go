package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/pkg/logger"
)

// ErrNoHandler is returned for messages whose event type has no registered handler
var ErrNoHandler = errors.New("no handler registered")

// Backoff bounds between attempts at a message that failed on a retryable error
const (
	DefaultRetryBackoff = 500 * time.Millisecond
	MaxRetryBackoff     = 10 * time.Second
)

// Retryable reports whether a handler error leaves the message unmarked for another attempt
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrStorageUnavailable)
}

// ProcessRequestHandler handles payment.process.requested events
type ProcessRequestHandler func(ctx context.Context, event ProcessRequestedEvent) error

// Consumer consumes payment commands from Kafka
type Consumer struct {
	consumer sarama.ConsumerGroup
	groupID  string
	topics   []string

	mu             sync.RWMutex
	processHandler ProcessRequestHandler

	retryBackoff time.Duration
}

// NewConsumer creates a new Kafka consumer group member
func NewConsumer(brokers []string, groupID string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Str("topic", TopicPaymentCommands).
		Msg("Kafka consumer initialized")

	return &Consumer{
		consumer: group,
		groupID:  groupID,
		topics:   []string{TopicPaymentCommands},
	}, nil
}

// RegisterProcessHandler sets the handler for payment.process.requested
func (c *Consumer) RegisterProcessHandler(handler ProcessRequestHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processHandler = handler
}

// Start consumes until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) {
	handler := &consumerGroupHandler{consumer: c}

	go func() {
		for {
			if err := c.consumer.Consume(ctx, c.topics, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				logger.Logger.Error().Err(err).Msg("Error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.consumer.Errors() {
			logger.Logger.Error().Err(err).Msg("Consumer error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	if c.consumer != nil {
		return c.consumer.Close()
	}
	return nil
}

// HandleMessage dispatches one message to its handler.
// Failures are returned for logging only; the message is never redelivered.
func (c *Consumer) HandleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	carrier := propagation.MapCarrier{}
	var eventType, eventID string
	for _, header := range message.Headers {
		switch key := string(header.Key); key {
		case HeaderEventType:
			eventType = string(header.Value)
		case HeaderEventID:
			eventID = string(header.Value)
		case "traceparent", "tracestate", "baggage":
			carrier[key] = string(header.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	ctx, span := otel.Tracer("kafka-consumer").Start(ctx, "kafka.consume."+eventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", message.Topic),
			attribute.String("messaging.source_kind", "topic"),
			attribute.Int("messaging.kafka.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.offset", message.Offset),
			attribute.String("event.type", eventType),
			attribute.String("event.id", eventID),
		),
	)
	defer span.End()

	err := c.dispatch(ctx, eventType, message.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx).
			Err(err).
			Str("event_type", eventType).
			Str("event_id", eventID).
			Str("topic", message.Topic).
			Int64("offset", message.Offset).
			Msg("Failed to handle event")
		return err
	}

	logger.Info(ctx).
		Str("event_type", eventType).
		Str("event_id", eventID).
		Msg("Event handled")
	return nil
}

// handleUntilSettled retries retryable failures until the message succeeds,
// fails permanently or ctx ends. It reports whether the offset may be marked.
func (c *Consumer) handleUntilSettled(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	backoff := c.retryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	for {
		err := c.HandleMessage(ctx, msg)
		if err == nil || !Retryable(err) {
			return true
		}

		logger.Warn(ctx).
			Err(err).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Dur("backoff", backoff).
			Msg("Retryable failure, holding message")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		backoff = min(backoff*2, MaxRetryBackoff)
	}
}

func (c *Consumer) dispatch(ctx context.Context, eventType string, value []byte) error {
	switch eventType {
	case EventTypePaymentProcessRequested:
		c.mu.RLock()
		handler := c.processHandler
		c.mu.RUnlock()
		if handler == nil {
			return fmt.Errorf("%w for %s", ErrNoHandler, eventType)
		}

		var event ProcessRequestedEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
		return handler(ctx, event)
	case "":
		return errors.New("message without event_type header")
	default:
		return fmt.Errorf("%w for %s", ErrNoHandler, eventType)
	}
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		// an unsettled message is redelivered to whoever owns the partition next
		if !h.consumer.handleUntilSettled(session.Context(), message) {
			return nil
		}
		session.MarkMessage(message, "")
	}
	return nil
}
