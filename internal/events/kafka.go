package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

// ErrBrokerUnavailable возвращается, пока circuit breaker открыт
var ErrBrokerUnavailable = errors.New("broker unavailable")

// MessageWriter часть *kafka.Writer, нужная публикатору
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter создаёт writer с hash-балансировкой, чтобы события одного заказа
// попадали в одну партицию.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
}

// OrderCreatedMessage формат события order.created в топике
type OrderCreatedMessage struct {
	Type          string             `json:"type"`
	OrderID       int64              `json:"order_id"`
	CustomerID    int64              `json:"customer_id"`
	CartID        string             `json:"cart_id"`
	PaymentStatus string             `json:"payment_status"`
	Total         string             `json:"total"`
	Items         []OrderItemMessage `json:"items"`
	PlacedAt      time.Time          `json:"placed_at"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

type OrderItemMessage struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

func newOrderCreatedMessage(ev domain.OrderCreated) OrderCreatedMessage {
	msg := OrderCreatedMessage{
		Type:          "order.created",
		OrderID:       ev.Order.ID,
		CustomerID:    ev.Order.CustomerID,
		CartID:        ev.CartID.String(),
		PaymentStatus: string(ev.Order.PaymentStatus),
		Total:         ev.Order.Total().StringFixed(2),
		Items:         make([]OrderItemMessage, 0, len(ev.Order.Items)),
		PlacedAt:      ev.Order.PlacedAt,
		OccurredAt:    ev.OccurredAt,
	}
	for _, it := range ev.Order.Items {
		msg.Items = append(msg.Items, OrderItemMessage{
			ProductID: it.Product.ID,
			Title:     it.Product.Title,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
		})
	}
	return msg
}

// KafkaPublisher публикует созданные заказы в топик через circuit breaker
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	cb     *gobreaker.CircuitBreaker[struct{}]
	tracer trace.Tracer
	log    *zap.Logger
}

// BreakerSettings размыкается после failures ошибок записи подряд и снова
// пробует писать через openFor.
func BreakerSettings(name string, failures uint32, openFor time.Duration, log *zap.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

func NewKafkaPublisher(writer MessageWriter, topic string, settings gobreaker.Settings, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		cb:     gobreaker.NewCircuitBreaker[struct{}](settings),
		tracer: otel.Tracer("storefront/events"),
		log:    log,
	}
}

// OrderCreated публикует событие с ключом id заказа
func (p *KafkaPublisher) OrderCreated(ctx context.Context, ev domain.OrderCreated) error {
	key := strconv.FormatInt(ev.Order.ID, 10)
	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("publish %s", p.topic),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			attribute.String("messaging.kafka.message.key", key),
		),
	)
	defer span.End()

	data, err := json.Marshal(newOrderCreatedMessage(ev))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	headers := make([]kafka.Header, 0, 2)
	otel.GetTextMapPropagator().Inject(ctx, &headerCarrier{headers: &headers})

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    ev.OccurredAt,
		Headers: headers,
	}

	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish message: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// headerCarrier adapts kafka headers to the otel propagation carrier.
type headerCarrier struct {
	headers *[]kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}
