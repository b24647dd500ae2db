package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

func TestCatalogService_CreateProductValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	cases := []struct {
		name string
		p    domain.Product
	}{
		{"empty title", domain.Product{Title: " ", UnitPrice: decimal.NewFromInt(1), CollectionID: 1}},
		{"zero price", domain.Product{Title: "x", UnitPrice: decimal.Zero, CollectionID: 1}},
		{"too expensive", domain.Product{Title: "x", UnitPrice: decimal.RequireFromString("10000"), CollectionID: 1}},
		{"sub-cent", domain.Product{Title: "x", UnitPrice: decimal.RequireFromString("1.001"), CollectionID: 1}},
		{"negative inventory", domain.Product{Title: "x", UnitPrice: decimal.NewFromInt(1), Inventory: -1, CollectionID: 1}},
		{"no collection", domain.Product{Title: "x", UnitPrice: decimal.NewFromInt(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.catalog.CreateProduct(ctx, tc.p)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := f.catalog.CreateProduct(ctx, domain.Product{Title: "x", UnitPrice: decimal.NewFromInt(1), CollectionID: 99})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCatalogService_SlugAndPriceWithTax(t *testing.T) {
	f := setup(t)
	p, err := f.catalog.CreateProduct(context.Background(), domain.Product{
		Title: "Dark Roast Beans 1kg", UnitPrice: decimal.RequireFromString("19.99"), CollectionID: f.productA.CollectionID,
	})
	require.NoError(t, err)
	assert.Equal(t, "dark-roast-beans-1kg", p.Slug)
	assert.Equal(t, "21.99", p.Ref().PriceWithTax().StringFixed(2))
}

func TestCatalogService_ProtectRules(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// collection still holds products
	assert.ErrorIs(t, f.catalog.DeleteCollection(ctx, f.productA.CollectionID), repository.ErrProtected)

	// product referenced by an order item
	_, err := f.orderSvc.PlaceOrder(ctx, "user-1", f.cartWith(t))
	require.NoError(t, err)
	assert.ErrorIs(t, f.catalog.DeleteProduct(ctx, f.productA.ID), repository.ErrProtected)

	// product only sitting in a cart is deleted together with the cart line
	cart, err := f.cartSvc.CreateCart(ctx)
	require.NoError(t, err)
	c, err := f.catalog.CreateProduct(ctx, domain.Product{Title: "Mug", UnitPrice: decimal.NewFromInt(7), CollectionID: f.productA.CollectionID})
	require.NoError(t, err)
	_, err = f.cartSvc.AddItem(ctx, cart.ID, c.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteProduct(ctx, c.ID))
	got, err := f.cartSvc.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestCustomerService_RegisterAndMe(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := NewCustomerService(f.store)

	me, err := svc.Me(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, me.ID)
	assert.Equal(t, domain.MembershipBronze, me.Membership)

	_, err = svc.Me(ctx, "nobody")
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	_, err = svc.Register(ctx, domain.Customer{UserID: "user-1"})
	assert.ErrorIs(t, err, repository.ErrConflict)
	_, err = svc.Register(ctx, domain.Customer{UserID: "user-3", Membership: "platinum"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, domain.Customer{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCatalogService_AddReview(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	r, err := f.catalog.AddReview(ctx, f.productA.ID, domain.Review{Name: "Ann", Description: "Rich and smooth"})
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, f.productA.ID, r.ProductID)

	_, err = f.catalog.AddReview(ctx, f.productA.ID, domain.Review{Name: " ", Description: "x"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
	assert.Equal(t, MsgBlank, ve.Message)

	_, err = f.catalog.AddReview(ctx, 404, domain.Review{Name: "Ann", Description: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.catalog.AddReview(ctx, 0, domain.Review{Name: "Ann", Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
