package events

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/telemetry"
)

// LogReceiver пишет одну строку лога на каждый созданный заказ
type LogReceiver struct {
	log *zap.Logger
}

func NewLogReceiver(log *zap.Logger) *LogReceiver {
	return &LogReceiver{log: log}
}

func (r *LogReceiver) OrderCreated(_ context.Context, ev domain.OrderCreated) error {
	r.log.Info("order created",
		zap.Int64("order_id", ev.Order.ID),
		zap.Int64("customer_id", ev.Order.CustomerID),
		zap.String("cart_id", ev.CartID.String()),
		zap.String("total", ev.Order.Total().StringFixed(2)),
		zap.Int("items", len(ev.Order.Items)),
	)
	return nil
}

// MetricsReceiver считает созданные заказы и их сумму
type MetricsReceiver struct {
	m *telemetry.Metrics
}

func NewMetricsReceiver(m *telemetry.Metrics) *MetricsReceiver {
	return &MetricsReceiver{m: m}
}

func (r *MetricsReceiver) OrderCreated(_ context.Context, ev domain.OrderCreated) error {
	r.m.OrdersCreated.Inc()
	r.m.OrderValue.Observe(ev.Order.Total().InexactFloat64())
	return nil
}

// Receiver совпадает с service.OrderCreatedReceiver без импорта пакета service
type Receiver interface {
	OrderCreated(ctx context.Context, ev domain.OrderCreated) error
}

// CountingReceiver оборачивает получателя и пишет каждый исход в EventsOut
type CountingReceiver struct {
	next Receiver
	m    *telemetry.Metrics
}

func NewCountingReceiver(next Receiver, m *telemetry.Metrics) *CountingReceiver {
	return &CountingReceiver{next: next, m: m}
}

func (r *CountingReceiver) OrderCreated(ctx context.Context, ev domain.OrderCreated) error {
	err := r.next.OrderCreated(ctx, ev)
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.m.EventsOut.WithLabelValues(result).Inc()
	return err
}
