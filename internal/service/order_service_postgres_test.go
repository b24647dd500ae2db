package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

func setupPostgresStore(t *testing.T) *repository.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, repository.RunMigrations(dsn))

	store, err := repository.NewPostgresStore(ctx, dsn, 16)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestOrderService_ConcurrentCheckoutPostgres(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	catalog := NewCatalogService(store)
	col, err := catalog.CreateCollection(ctx, domain.Collection{Title: "Groceries"})
	require.NoError(t, err)
	coffee, err := catalog.CreateProduct(ctx, domain.Product{
		Title: "Coffee", UnitPrice: decimal.RequireFromString("10.00"), Inventory: 10, CollectionID: col.ID,
	})
	require.NoError(t, err)
	tea, err := catalog.CreateProduct(ctx, domain.Product{
		Title: "Tea", UnitPrice: decimal.RequireFromString("5.00"), Inventory: 10, CollectionID: col.ID,
	})
	require.NoError(t, err)
	_, err = NewCustomerService(store).Register(ctx, domain.Customer{UserID: "user-1", Email: "u1@example.com"})
	require.NoError(t, err)

	carts := NewCartService(store, store, nil, nil)
	cart, err := carts.CreateCart(ctx)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, cart.ID, coffee.ID, 2)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, cart.ID, tea.ID, 1)
	require.NoError(t, err)

	orders := NewOrderService(store, store, store, store, NewNotifier(nil, 0), nil)

	const buyers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed []*domain.Order
		errs   []error
		start  = make(chan struct{})
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			o, err := orders.PlaceOrder(ctx, "user-1", cart.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			placed = append(placed, o)
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, placed, 1, "exactly one checkout must win")
	require.Len(t, errs, buyers-1)
	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrCartNotFound), "unexpected error: %v", err)
	}

	_, err = store.CountItems(ctx, cart.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	o := placed[0]
	require.Len(t, o.Items, 2)
	assert.True(t, itemFor(t, o, coffee.ID).UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, int64(2), itemFor(t, o, coffee.ID).Quantity)
	assert.Equal(t, int64(1), itemFor(t, o, tea.ID).Quantity)

	list, err := orders.ListOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)
	assert.True(t, list[0].Total().Equal(decimal.RequireFromString("25.00")))
}
