package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func (s *PostgresStore) CreateCollection(ctx context.Context, c *domain.Collection) error {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO collections (title, featured_product_id) VALUES ($1, $2) RETURNING id`,
		c.Title, c.FeaturedProductID,
	).Scan(&c.ID)
	if err != nil {
		return insertErr("insert collection", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCollection(ctx context.Context, id int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete collection", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO products (title, slug, description, unit_price, inventory, collection_id)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6)
		 RETURNING id, last_update`,
		p.Title, p.Slug, p.Description, p.UnitPrice.String(), p.Inventory, p.CollectionID,
	).Scan(&p.ID, &p.LastUpdate)
	if err != nil {
		return insertErr("insert product", err)
	}
	for _, promoID := range p.PromotionIDs {
		if _, err := s.q(ctx).Exec(ctx,
			`INSERT INTO product_promotions (product_id, promotion_id) VALUES ($1, $2)`,
			p.ID, promoID,
		); err != nil {
			return insertErr("link promotion", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, title, slug, description, unit_price::text, inventory, collection_id, last_update
		 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &price, &p.Inventory, &p.CollectionID, &p.LastUpdate)
	if err != nil {
		return nil, wrapErr("query product", err)
	}
	if p.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse unit price %q: %w", price, err)
	}
	return &p, nil
}

func (s *PostgresStore) CurrentPrice(ctx context.Context, id int64) (decimal.Decimal, error) {
	var price string
	if err := s.q(ctx).QueryRow(ctx,
		`SELECT unit_price::text FROM products WHERE id = $1`, id,
	).Scan(&price); err != nil {
		return decimal.Zero, wrapErr("query price", err)
	}
	return decimal.NewFromString(price)
}

func (s *PostgresStore) ProductExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, wrapErr("query product exists", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE products SET unit_price = $2::numeric, last_update = NOW() WHERE id = $1`,
		id, price.String(),
	)
	if err != nil {
		return wrapErr("update price", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateReview(ctx context.Context, r *domain.Review) error {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO reviews (product_id, name, description) VALUES ($1, $2, $3) RETURNING id, date`,
		r.ProductID, r.Name, r.Description,
	).Scan(&r.ID, &r.Date)
	if err != nil {
		return insertErr("insert review", err)
	}
	return nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	if c.Membership == "" {
		c.Membership = domain.MembershipBronze
	}
	var email *string
	if c.Email != "" {
		email = &c.Email
	}
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO customers (user_id, first_name, last_name, email, phone, birth_date, membership)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.UserID, c.FirstName, c.LastName, email, c.Phone, c.BirthDate, string(c.Membership),
	).Scan(&c.ID)
	if err != nil {
		return insertErr("insert customer", err)
	}
	return nil
}

func (s *PostgresStore) ResolveCustomer(ctx context.Context, userID string) (*domain.Customer, error) {
	var (
		c          domain.Customer
		email      *string
		membership string
	)
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, user_id, first_name, last_name, email, phone, birth_date, membership
		 FROM customers WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &email, &c.Phone, &c.BirthDate, &membership)
	if err != nil {
		return nil, wrapErr("query customer", err)
	}
	if email != nil {
		c.Email = *email
	}
	c.Membership = domain.Membership(membership)
	return &c, nil
}

func (s *PostgresStore) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete customer", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
