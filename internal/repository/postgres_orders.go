package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Order queries

func (s *PostgresStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	if o.PaymentStatus == "" {
		o.PaymentStatus = domain.PaymentStatusPending
	}
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO orders (customer_id, payment_status) VALUES ($1, $2)
		 RETURNING id, placed_at`,
		o.CustomerID, string(o.PaymentStatus),
	).Scan(&o.ID, &o.PlacedAt)
	if err != nil {
		return insertErr("insert order", err)
	}
	return nil
}

func (s *PostgresStore) CreateItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	productIDs := make([]int64, len(items))
	quantities := make([]int64, len(items))
	prices := make([]string, len(items))
	for i, it := range items {
		productIDs[i] = it.Product.ID
		quantities[i] = it.Quantity
		prices[i] = it.UnitPrice.String()
	}

	rows, err := s.q(ctx).Query(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		 SELECT $1, t.product_id, t.quantity, t.unit_price::numeric
		 FROM unnest($2::bigint[], $3::bigint[], $4::text[]) AS t(product_id, quantity, unit_price)
		 RETURNING id, product_id`,
		orderID, productIDs, quantities, prices)
	if err != nil {
		return insertErr("insert order items", err)
	}
	defer rows.Close()

	// one item per product within an order, so product id maps back to the input
	byProduct := make(map[int64]int64, len(items))
	for rows.Next() {
		var id, productID int64
		if err := rows.Scan(&id, &productID); err != nil {
			return fmt.Errorf("scan order item id: %w", err)
		}
		byProduct[productID] = id
	}
	if err := rows.Err(); err != nil {
		return insertErr("insert order items", err)
	}
	for i := range items {
		items[i].ID = byProduct[items[i].Product.ID]
		items[i].OrderID = orderID
	}
	return nil
}

func (s *PostgresStore) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
	}

	rows, err := s.q(ctx).Query(ctx,
		`SELECT oi.id, oi.order_id, p.id, p.title, p.unit_price::text, oi.unit_price::text, oi.quantity
		 FROM order_items oi JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ANY($1) ORDER BY oi.id`, ids)
	if err != nil {
		return wrapErr("query order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it                   domain.OrderItem
			current, snapshotted string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Product.ID, &it.Product.Title, &current, &snapshotted, &it.Quantity); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if it.Product.UnitPrice, err = decimal.NewFromString(current); err != nil {
			return fmt.Errorf("parse unit price %q: %w", current, err)
		}
		if it.UnitPrice, err = decimal.NewFromString(snapshotted); err != nil {
			return fmt.Errorf("parse unit price %q: %w", snapshotted, err)
		}
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, customer_id, placed_at, payment_status FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.PlacedAt, &status)
	if err != nil {
		return nil, wrapErr("query order", err)
	}
	o.PaymentStatus = domain.PaymentStatus(status)
	if err := s.loadItems(ctx, []*domain.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, customer_id, placed_at, payment_status
		 FROM orders WHERE customer_id = $1 ORDER BY id DESC`, customerID)
	if err != nil {
		return nil, wrapErr("query orders by customer", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var (
			o      domain.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.PlacedAt, &status); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.PaymentStatus = domain.PaymentStatus(status)
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	if err := s.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *PostgresStore) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE orders SET payment_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return nil, wrapErr("update payment status", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetOrder(ctx, id)
}
