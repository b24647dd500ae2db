package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
)

//go:generate mockgen -source=notifier.go -destination=mocks/receiver_mock.go -package=mocks

// OrderCreatedReceiver получает каждый заказ после фиксации его транзакции
type OrderCreatedReceiver interface {
	OrderCreated(ctx context.Context, ev domain.OrderCreated) error
}

// ReceiverFunc адаптер функции к OrderCreatedReceiver
type ReceiverFunc func(ctx context.Context, ev domain.OrderCreated) error

func (f ReceiverFunc) OrderCreated(ctx context.Context, ev domain.OrderCreated) error {
	return f(ctx, ev)
}

type namedReceiver struct {
	name string
	r    OrderCreatedReceiver
}

// Notifier список post-commit обработчиков созданных заказов. Каждый получатель
// вызывается, даже если предыдущий упал с ошибкой или паникой.
type Notifier struct {
	mu        sync.RWMutex
	receivers []namedReceiver
	timeout   time.Duration
	log       *zap.Logger
}

func NewNotifier(log *zap.Logger, timeout time.Duration) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{timeout: timeout, log: log}
}

func (n *Notifier) Register(name string, r OrderCreatedReceiver) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receivers = append(n.receivers, namedReceiver{name: name, r: r})
}

// Notify доставляет ev всем получателям. Ошибки логируются и объединяются
// в возвращаемую ошибку; заказ они не отменяют.
func (n *Notifier) Notify(ctx context.Context, ev domain.OrderCreated) error {
	n.mu.RLock()
	receivers := make([]namedReceiver, len(n.receivers))
	copy(receivers, n.receivers)
	n.mu.RUnlock()

	// the request may be finished by the time a slow receiver runs
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for _, nr := range receivers {
		if err := n.deliver(ctx, nr, ev); err != nil {
			n.log.Warn("order notification failed",
				zap.String("receiver", nr.name),
				zap.Int64("order_id", ev.Order.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", nr.name, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) deliver(ctx context.Context, nr namedReceiver, ev domain.OrderCreated) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("receiver panicked: %v", p)
		}
	}()
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	return nr.r.OrderCreated(ctx, ev)
}
