package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// OrderService реализует оформление заказа, чтение заказов и смену статуса оплаты
type OrderService struct {
	customers repository.CustomerRepository
	carts     repository.CartRepository
	orders    repository.OrderRepository
	tx        repository.TxManager
	notifier  *Notifier
	log       *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewOrderService(
	customers repository.CustomerRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	tx repository.TxManager,
	notifier *Notifier,
	log *zap.Logger,
) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		customers: customers,
		carts:     carts,
		orders:    orders,
		tx:        tx,
		notifier:  notifier,
		log:       log,
		tracer:    otel.Tracer("storefront/service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder превращает корзину в заказ покупателя, стоящего за identity.
//
// Проверки корзины идут до любой записи. Создание заказа, вставка строк и
// удаление корзины выполняются в одной транзакции; уведомления рассылаются
// только после её фиксации.
func (s *OrderService) PlaceOrder(ctx context.Context, identity string, cartID uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder",
		trace.WithAttributes(attribute.String("cart.id", cartID.String())),
	)
	defer span.End()

	created, err := s.placeOrder(ctx, identity, cartID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("order.id", created.ID),
		attribute.Int("order.items_count", len(created.Items)),
	)
	span.SetStatus(codes.Ok, "")

	s.log.Info("order placed",
		zap.Int64("order_id", created.ID),
		zap.Int64("customer_id", created.CustomerID),
		zap.String("cart_id", cartID.String()),
		zap.Int("items", len(created.Items)),
	)

	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, domain.OrderCreated{
			Order:      *created,
			CartID:     cartID,
			OccurredAt: s.now(),
		})
	}
	return created, nil
}

func (s *OrderService) placeOrder(ctx context.Context, identity string, cartID uuid.UUID) (*domain.Order, error) {
	if ve, err := validateCheckoutCart(ctx, s.carts, cartID); err != nil {
		return nil, err
	} else if ve != nil {
		return nil, ve
	}

	customer, err := s.customers.ResolveCustomer(ctx, identity)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	var created *domain.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// a concurrent checkout of the same cart waits here and then finds it gone
		if err := s.carts.LockCart(ctx, cartID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return cartNotFound()
			}
			return err
		}

		o := domain.Order{CustomerID: customer.ID, PaymentStatus: domain.PaymentStatusPending}
		if err := s.orders.CreateOrder(ctx, &o); err != nil {
			return err
		}

		lines, err := s.carts.ListLines(ctx, cartID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return cartEmpty()
		}
		items := make([]domain.OrderItem, 0, len(lines))
		for _, l := range lines {
			items = append(items, domain.OrderItem{
				Product:   domain.ProductRef{ID: l.ProductID, Title: l.Title, UnitPrice: l.UnitPrice},
				UnitPrice: l.UnitPrice,
				Quantity:  l.Quantity,
			})
		}
		if err := s.orders.CreateItems(ctx, o.ID, items); err != nil {
			return err
		}

		if err := s.carts.DeleteCart(ctx, cartID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return cartNotFound()
			}
			return err
		}

		o.Items = items
		created = &o
		return nil
	})
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return nil, ve
		}
		return nil, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return created, nil
}

// GetOrder возвращает заказ вызывающего покупателя
func (s *OrderService) GetOrder(ctx context.Context, identity string, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	customer, err := s.resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customer.ID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

// ListOrders возвращает заказы вызывающего покупателя, новые первыми
func (s *OrderService) ListOrders(ctx context.Context, identity string) ([]domain.Order, error) {
	customer, err := s.resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.orders.ListOrdersByCustomer(ctx, customer.ID)
}

// UpdatePaymentStatus переводит заказ между pending, complete и failed
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if ve := validatePaymentStatus(status); ve != nil {
		return nil, ve
	}
	o, err := s.orders.UpdatePaymentStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment status updated", zap.Int64("order_id", id), zap.String("status", string(status)))
	return o, nil
}

func (s *OrderService) resolve(ctx context.Context, identity string) (*domain.Customer, error) {
	c, err := s.customers.ResolveCustomer(ctx, identity)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	return c, err
}
