package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Cart queries

func (s *PostgresStore) CreateCart(ctx context.Context) (*domain.Cart, error) {
	cart := &domain.Cart{ID: uuid.New(), Items: []domain.CartItem{}}
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO carts (id) VALUES ($1) RETURNING created_at`, cart.ID,
	).Scan(&cart.CreatedAt)
	if err != nil {
		return nil, insertErr("insert cart", err)
	}
	return cart, nil
}

const cartItemColumns = `ci.id, ci.cart_id, p.id, p.title, p.unit_price::text, ci.quantity`

func scanCartItem(row pgx.Row) (domain.CartItem, error) {
	var (
		it    domain.CartItem
		price string
	)
	if err := row.Scan(&it.ID, &it.CartID, &it.Product.ID, &it.Product.Title, &price, &it.Quantity); err != nil {
		return it, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return it, fmt.Errorf("parse unit price %q: %w", price, err)
	}
	it.Product.UnitPrice = p
	return it, nil
}

func (s *PostgresStore) GetCart(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{ID: id, Items: []domain.CartItem{}}
	if err := s.q(ctx).QueryRow(ctx,
		`SELECT created_at FROM carts WHERE id = $1`, id,
	).Scan(&cart.CreatedAt); err != nil {
		return nil, wrapErr("query cart", err)
	}

	rows, err := s.q(ctx).Query(ctx,
		`SELECT `+cartItemColumns+`
		 FROM cart_items ci JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1 ORDER BY ci.id`, id)
	if err != nil {
		return nil, wrapErr("query cart items", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cart, nil
}

func (s *PostgresStore) CountItems(ctx context.Context, id uuid.UUID) (int, error) {
	var (
		exists bool
		n      int
	)
	err := s.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1),
		        (SELECT COUNT(*) FROM cart_items WHERE cart_id = $1)`, id,
	).Scan(&exists, &n)
	if err != nil {
		return 0, wrapErr("count cart items", err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *PostgresStore) cartItem(ctx context.Context, cartID uuid.UUID, itemID int64) (*domain.CartItem, error) {
	it, err := scanCartItem(s.q(ctx).QueryRow(ctx,
		`SELECT `+cartItemColumns+`
		 FROM cart_items ci JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1 AND ci.id = $2`, cartID, itemID))
	if err != nil {
		return nil, wrapErr("query cart item", err)
	}
	return &it, nil
}

func (s *PostgresStore) AddItem(ctx context.Context, cartID uuid.UUID, productID, quantity int64) (*domain.CartItem, error) {
	var itemID int64
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3::bigint)
		 ON CONFLICT ON CONSTRAINT cart_items_cart_product_key
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 WHERE cart_items.quantity::int + EXCLUDED.quantity::int <= $4
		 RETURNING id`,
		cartID, productID, quantity, domain.MaxQuantity,
	).Scan(&itemID)
	// the guarded update returns no row when the sum would pass the limit
	if errors.Is(err, pgx.ErrNoRows) || isOutOfRange(err) {
		return nil, ErrQuantityLimit
	}
	if err != nil {
		return nil, insertErr("upsert cart item", err)
	}
	return s.cartItem(ctx, cartID, itemID)
}

func (s *PostgresStore) SetItemQuantity(ctx context.Context, cartID uuid.UUID, itemID, quantity int64) (*domain.CartItem, error) {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE cart_items SET quantity = $3::bigint WHERE cart_id = $1 AND id = $2`,
		cartID, itemID, quantity)
	if isOutOfRange(err) {
		return nil, ErrQuantityLimit
	}
	if err != nil {
		return nil, wrapErr("update cart item", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.cartItem(ctx, cartID, itemID)
}

func (s *PostgresStore) RemoveItem(ctx context.Context, cartID uuid.UUID, itemID int64) error {
	tag, err := s.q(ctx).Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, itemID)
	if err != nil {
		return wrapErr("delete cart item", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LockCart(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	if err := s.q(ctx).QueryRow(ctx,
		`SELECT id FROM carts WHERE id = $1 FOR UPDATE`, id,
	).Scan(&locked); err != nil {
		return wrapErr("lock cart", err)
	}
	return nil
}

func (s *PostgresStore) ListLines(ctx context.Context, id uuid.UUID) ([]CartLine, error) {
	// product rows are read without a lock; the snapshot is whatever price is
	// committed at this point
	rows, err := s.q(ctx).Query(ctx,
		`SELECT ci.id, p.id, p.title, p.unit_price::text, ci.quantity
		 FROM cart_items ci JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1 ORDER BY ci.id`, id)
	if err != nil {
		return nil, wrapErr("query cart lines", err)
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var (
			l     CartLine
			price string
		)
		if err := rows.Scan(&l.ItemID, &l.ProductID, &l.Title, &price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price %q: %w", price, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (s *PostgresStore) DeleteCart(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete cart", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

